package evaluator

import "fmt"

// EvaluatorProcessError reports an evaluator run that exited non-zero.
type EvaluatorProcessError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *EvaluatorProcessError) Error() string {
	return fmt.Sprintf("evaluator exited with code %d: %s", e.ExitCode, e.Output)
}

// MetricsNotFoundError reports a successful evaluator run that left no
// metrics summary behind.
type MetricsNotFoundError struct {
	Path string
}

func (e *MetricsNotFoundError) Error() string {
	return fmt.Sprintf("metrics summary not found: %s", e.Path)
}
