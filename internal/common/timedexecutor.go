package common

import (
	"time"
)

// TimedExecutor runs a task at most once per interval. Call Execute
// from a loop that wakes up more often than the interval: the task
// runs only on the calls where the stopwatch says the interval has
// passed, the rest do nothing
type TimedExecutor struct {
	stopwatch Stopwatch
	task      func()
}

func NewTimedExecutor(interval time.Duration, task func()) TimedExecutor {
	return TimedExecutor{stopwatch: NewStopwatch(interval), task: task}
}

// Execute runs the task if the interval has passed since the last run
func (te *TimedExecutor) Execute() {
	stopped, _ := te.stopwatch.Stopped()
	if !stopped {
		return
	}
	te.stopwatch.Start()
	te.task()
}
