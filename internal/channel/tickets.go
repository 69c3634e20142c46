package channel

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidTicket = errors.New("invalid preview ticket")

// TicketClaims 把一个渲染上下文绑定到唯一的握手会话。
type TicketClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Tickets 签发与校验 HS256 预览票据。
type Tickets struct {
	secret []byte
	now    func() time.Time
}

func NewTickets(secret string) *Tickets {
	return &Tickets{secret: []byte(secret), now: time.Now}
}

// Sign 为会话签发在 ttl 后过期的票据。
func (t *Tickets) Sign(sessionID string, ttl time.Duration) (string, error) {
	now := t.now()
	claims := TicketClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "preview",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign preview ticket: %w", err)
	}
	return signed, nil
}

// Verify 校验票据并返回其会话 ID。
func (t *Tickets) Verify(ticket string) (string, error) {
	claims := &TicketClaims{}
	token, err := jwt.ParseWithClaims(ticket, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidTicket, err)
	}
	if claims.SessionID == "" || claims.Subject != "preview" {
		return "", ErrInvalidTicket
	}
	return claims.SessionID, nil
}
