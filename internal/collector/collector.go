package collector

import (
	"context"
	"fmt"
)

// Status tags a collector result.
type Status string

const (
	StatusSuccess Status = "success"
	StatusEmpty   Status = "empty"
	StatusFailure Status = "failure"
)

// Result is the tagged outcome of one collector run. A collector produces
// exactly one Result per pipeline run and never lets an error escape its
// boundary.
type Result struct {
	Collector string      `json:"collector"`
	Status    Status      `json:"status"`
	Payload   interface{} `json:"payload,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// Success wraps a payload of today-scoped records.
func Success(name string, payload interface{}) Result {
	return Result{Collector: name, Status: StatusSuccess, Payload: payload}
}

// Empty marks a source that answered but had nothing for today.
func Empty(name, reason string) Result {
	return Result{Collector: name, Status: StatusEmpty, Reason: reason}
}

// Failure marks a fetch or parse error, caught at the collector boundary.
func Failure(name, reason string) Result {
	return Result{Collector: name, Status: StatusFailure, Reason: reason}
}

func Failuref(name, format string, args ...interface{}) Result {
	return Failure(name, fmt.Sprintf(format, args...))
}

// Collector fetches one bounded, today-scoped slice of data from an external
// source. Fetch makes one attempt: retries, if ever wanted, belong to the
// caller.
type Collector interface {
	Name() string
	Fetch(ctx context.Context) Result
}

// Collector names, also the BriefingContext keys.
const (
	NameMail     = "mail"
	NameCalendar = "calendar"
	NameTasks    = "tasks"
	NameMarket   = "market"
	NameTransit  = "transit"
)

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
