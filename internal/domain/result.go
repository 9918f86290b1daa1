package domain

import "time"

// ErrorCategory classifies why an execution failed. The zero value means no error.
type ErrorCategory string

const (
	CategoryNone                 ErrorCategory = ""
	CategoryConfiguration        ErrorCategory = "configuration"
	CategoryConnectionRefused    ErrorCategory = "connection_refused"
	CategoryTimeout              ErrorCategory = "timeout"
	CategoryAuthenticationFailed ErrorCategory = "authentication_failed"
	CategorySemanticFailure      ErrorCategory = "semantic_failure"
	CategoryUnknown              ErrorCategory = "unknown"
)

func (c ErrorCategory) String() string {
	if c == CategoryNone {
		return "ok"
	}
	return string(c)
}

// ExecutionResult is the outcome of one action against one target.
type ExecutionResult struct {
	Succeeded bool
	Target    string
	// Response is the raw RCON payload when one was received in time.
	Response string
	Category ErrorCategory
	Detail   string
	Duration time.Duration
}

// Failure builds a failed result for a target.
func Failure(target string, category ErrorCategory, detail string) ExecutionResult {
	return ExecutionResult{Target: target, Category: category, Detail: detail}
}

// AggregateReport holds one result per attempted target, in the order the
// targets were supplied.
type AggregateReport struct {
	Results []ExecutionResult
}

// AnySucceeded reports whether at least one target accepted the action.
func (r AggregateReport) AnySucceeded() bool {
	for _, res := range r.Results {
		if res.Succeeded {
			return true
		}
	}
	return false
}

func (r AggregateReport) Succeeded() []ExecutionResult {
	return r.filter(true)
}

func (r AggregateReport) Failed() []ExecutionResult {
	return r.filter(false)
}

func (r AggregateReport) filter(succeeded bool) []ExecutionResult {
	var out []ExecutionResult
	for _, res := range r.Results {
		if res.Succeeded == succeeded {
			out = append(out, res)
		}
	}
	return out
}
