package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs(t *testing.T) {
	g := NewSequentialIDs("")
	assert.Equal(t, "session-1", g.Generate())
	assert.Equal(t, "session-2", g.Generate())

	g.Reset()
	assert.Equal(t, "session-1", g.Generate())

	p := NewSequentialIDs("attempt")
	assert.Equal(t, "attempt-1", p.Generate())
}

func TestDeterministicClock(t *testing.T) {
	c := NewDeterministicClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	c.Reset()
	assert.Equal(t, int64(1), c.Next())
}
