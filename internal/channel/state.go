package channel

import (
	"errors"
	"fmt"
	"sync"
)

// State 是一次握手的状态：Waiting → Ready → Received，或 Waiting → TimedOut。
type State int

const (
	Waiting State = iota
	Ready
	Received
	TimedOut
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Ready:
		return "ready"
	case Received:
		return "received"
	case TimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrTimedOut          = errors.New("handshake timed out")
	ErrInvalidTransition = errors.New("invalid handshake transition")
)

// Session 保证状态只沿合法路径前进；超时之后无法再进入 Ready。
type Session struct {
	id string

	mu    sync.Mutex
	state State
}

func NewSession(id string) *Session {
	return &Session{id: id, state: Waiting}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MarkReady 记录收到就绪信号。
func (s *Session) MarkReady() error {
	return s.transition(Waiting, Ready)
}

// MarkReceived 记录文档已发送给渲染上下文，只会成功一次。
func (s *Session) MarkReceived() error {
	return s.transition(Ready, Received)
}

// Expire 在仍处于 Waiting 时转入 TimedOut，返回是否发生了转换。
func (s *Session) Expire() bool {
	return s.transition(Waiting, TimedOut) == nil
}

func (s *Session) transition(from, to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == TimedOut {
		return ErrTimedOut
	}
	if s.state != from {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
	}
	s.state = to
	return nil
}
