package registry

import "time"

// Status is the detailed outcome code of a tool execution.
type Status string

const (
	StatusSuccess          Status = "SUCCESS"
	StatusFailure          Status = "FAILURE"
	StatusPermissionDenied Status = "PERMISSION_DENIED"
	StatusTimeout          Status = "TIMEOUT"
	StatusValidationError  Status = "VALIDATION_ERROR"
	StatusNotFound         Status = "NOT_FOUND"
)

// Result is the canonical outcome of a tool execution. It is created once
// per invocation and never mutated afterwards. Success and Status are kept
// consistent by the constructors: StatusSuccess implies Success=true and
// every other status implies Success=false.
type Result struct {
	Success    bool           `json:"success"`
	Output     string         `json:"output"`
	Error      string         `json:"error,omitempty"`
	Status     Status         `json:"status"`
	DurationMS float64        `json:"duration_ms"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// OK creates a successful result.
func OK(output string) *Result {
	return &Result{
		Success: true,
		Output:  output,
		Status:  StatusSuccess,
	}
}

// Fail creates a failed result with the given status. A StatusSuccess
// argument is coerced to StatusFailure so the invariant holds.
func Fail(errMsg string, status Status) *Result {
	if status == StatusSuccess {
		status = StatusFailure
	}
	return &Result{
		Success: false,
		Output:  "",
		Error:   errMsg,
		Status:  status,
	}
}

// normalize reconciles a result whose fields were set directly (for example
// by a handler) with the Success<->Status invariant.
func (r *Result) normalize() {
	if r.Success && r.Status != StatusSuccess {
		r.Status = StatusSuccess
	}
	if !r.Success && r.Status == StatusSuccess {
		r.Status = StatusFailure
	}
}

// withDuration stamps the measured wall-clock duration onto the result.
func (r *Result) withDuration(d time.Duration) *Result {
	r.DurationMS = float64(d.Microseconds()) / 1000.0
	return r
}

// Legacy is the older (success, output, error) handler return shape.
// Execute converts it into a canonical Result.
type Legacy struct {
	Success bool
	Output  string
	Error   string
}
