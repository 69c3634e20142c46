package idgen

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Format(t *testing.T) {
	id := New(PrefixModule)

	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "module", parts[0])
	assert.NotEmpty(t, parts[1])
	assert.Len(t, parts[2], suffixLen)
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := New(PrefixInfo)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestBuild_TimestampIsBase36Millis(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	id := build("x", now)
	assert.True(t, strings.HasPrefix(id, "x-loyw3v28-"), id)
}

func TestBuild_EmptyPrefix(t *testing.T) {
	id := build("", time.UnixMilli(36))
	assert.True(t, strings.HasPrefix(id, "10-"), id)
}

func TestSequence(t *testing.T) {
	gen := Sequence()
	assert.Equal(t, "info-1", gen("info"))
	assert.Equal(t, "info-2", gen("info"))
	assert.Equal(t, "module-1", gen("module"))
}
