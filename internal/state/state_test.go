package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInitial(t *testing.T) {
	s := Initial(12)
	assert.Empty(t, s.Confessions)
	assert.NotNil(t, s.Confessions)
	assert.Equal(t, Page{Offset: 0, Limit: 12, HasMore: true}, s.Page)
	assert.True(t, s.AuthLoading)
	assert.False(t, s.IsAuthReady)
	assert.NotNil(t, s.Replies)
}

func TestWithThreadDoesNotMutateReceiver(t *testing.T) {
	s := Initial(12)
	s.Replies = map[string]ReplyThread{"a": {IsOpen: true}}

	next := s.WithThread("b", ReplyThread{Loading: true})

	assert.Len(t, s.Replies, 1)
	assert.Len(t, next, 2)
	assert.True(t, next["a"].IsOpen)
	assert.True(t, next["b"].Busy())
}

func TestThreadDefaultsToZero(t *testing.T) {
	s := Initial(12)
	assert.Equal(t, ReplyThread{}, s.Thread("missing"))
}

func TestCooldownActive(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := Initial(12)
	assert.False(t, s.CooldownActive(now))

	end := now.Add(time.Second)
	s.CooldownEnd = &end
	assert.True(t, s.CooldownActive(now))
	assert.False(t, s.CooldownActive(end))
}
