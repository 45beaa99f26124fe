package collector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenSet_MarkTwice(t *testing.T) {
	s := NewSeenSet()

	assert.False(t, s.IsSeen("m1"))
	assert.True(t, s.MarkSeen("m1"))
	assert.False(t, s.MarkSeen("m1"))
	assert.True(t, s.IsSeen("m1"))
	assert.Equal(t, 1, s.Len())
}

func TestSeenSet_Reset(t *testing.T) {
	s := NewSeenSet()
	for i := 0; i < 100; i++ {
		s.MarkSeen(fmt.Sprintf("match-%d", i))
	}
	assert.Equal(t, 100, s.Len())

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.IsSeen("match-1"))
}

func TestSeenSet_NoFalsePositives(t *testing.T) {
	s := NewSeenSet()
	for i := 0; i < 5000; i++ {
		s.MarkSeen(fmt.Sprintf("seen-%d", i))
	}
	for i := 0; i < 5000; i++ {
		assert.False(t, s.IsSeen(fmt.Sprintf("other-%d", i)))
	}
}
