package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // every evaluation task settled successfully
	ExitTaskFailed = 1 // the run completed but one or more tasks failed
	ExitError      = 2 // configuration or runtime error
)

// TaskFailureError indicates that the evaluation run itself completed, but
// one or more tasks exhausted their retries.
type TaskFailureError struct {
	Message string
}

func (e *TaskFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var taskErr *TaskFailureError
		if errors.As(err, &taskErr) {
			os.Exit(ExitTaskFailed)
		}

		os.Exit(ExitError)
	}
}
