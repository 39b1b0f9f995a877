package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimedExecutorRespectsTimeout(t *testing.T) {

	runs := 0
	executor := NewTimedExecutor(50*time.Millisecond, func() { runs++ })

	// A fresh executor fires on the first check
	executor.Execute()
	assert.Equal(t, 1, runs)

	// and then not again until the timeout has passed
	executor.Execute()
	assert.Equal(t, 1, runs)

	time.Sleep(60 * time.Millisecond)
	executor.Execute()
	assert.Equal(t, 2, runs)
}
