// Package health runs the doctor checks for a job: whether every
// interpreter a script names can be found and whether every working
// directory exists.
//
//	manager := health.NewManager()
//	for _, c := range health.ForJob(spec) {
//	    manager.AddChecker(c)
//	}
//	results := manager.Check(ctx)
package health

import (
	"context"
	"time"
)

// Checker is one doctor check.
type Checker interface {
	// Name identifies the check in reports, e.g. "interpreter:python3".
	Name() string
	// Check must honor ctx; the manager bounds every check with a timeout.
	Check(ctx context.Context) *Result
}

// Status is the outcome of a check. Unhealthy means tasks depending on the
// checked thing will fail.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) severity() int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Result is what a check found.
type Result struct {
	Status  Status         `json:"status" yaml:"status"`
	Message string         `json:"message" yaml:"message"`
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Latency time.Duration  `json:"latency" yaml:"latency"`
}

func newResult(s Status, message string) *Result {
	return &Result{Status: s, Message: message}
}

// WithDetail attaches structured context, such as the tasks that depend on
// the checked executor.
func (r *Result) WithDetail(key string, value any) *Result {
	if r.Details == nil {
		r.Details = make(map[string]any)
	}
	r.Details[key] = value
	return r
}

func Healthy(message string) *Result   { return newResult(StatusHealthy, message) }
func Degraded(message string) *Result  { return newResult(StatusDegraded, message) }
func Unhealthy(message string) *Result { return newResult(StatusUnhealthy, message) }
