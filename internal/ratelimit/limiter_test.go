package ratelimit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAllowFirstTriggerThenDeny(t *testing.T) {
	l := NewTriggerLimiter()
	jobID := uuid.New()

	ok, retryAfter := l.Allow(jobID)
	assert.True(t, ok)
	assert.Zero(t, retryAfter)

	ok, retryAfter = l.Allow(jobID)
	assert.False(t, ok)
	assert.Greater(t, retryAfter, 0.0)
}

func TestAllowIndependentPerJob(t *testing.T) {
	l := NewTriggerLimiter()

	ok1, _ := l.Allow(uuid.New())
	ok2, _ := l.Allow(uuid.New())

	assert.True(t, ok1)
	assert.True(t, ok2)
}
