package idgen

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 前缀约定，与导出的 .magicyan 文件保持一致。
const (
	PrefixInfo   = "info"
	PrefixModule = "module"
)

const suffixLen = 9

// Func 生成带前缀的 ID，便于在测试中替换。
type Func func(prefix string) string

// New 生成形如 "<prefix>-<毫秒时间戳 base36>-<9 位随机串>" 的 ID。
// 不做冲突检测：单会话内时间戳 + 随机后缀碰撞概率可忽略。
func New(prefix string) string {
	return build(prefix, time.Now())
}

func build(prefix string, now time.Time) string {
	stamp := strconv.FormatInt(now.UnixMilli(), 36)
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen]

	var b strings.Builder
	b.Grow(len(prefix) + len(stamp) + suffixLen + 2)
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('-')
	}
	b.WriteString(stamp)
	b.WriteByte('-')
	b.WriteString(random)
	return b.String()
}

// Sequence 返回一个确定性的生成器（<prefix>-1、<prefix>-2 ...），供测试与示例数据使用。
func Sequence() Func {
	counters := map[string]int{}
	return func(prefix string) string {
		counters[prefix]++
		return prefix + "-" + strconv.Itoa(counters[prefix])
	}
}
