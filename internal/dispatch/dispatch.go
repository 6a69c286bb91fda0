package dispatch

import "context"

// OutcomeStatus tags a per-channel delivery outcome.
type OutcomeStatus string

const (
	StatusDelivered OutcomeStatus = "delivered"
	StatusSimulated OutcomeStatus = "simulated"
	StatusFailed    OutcomeStatus = "failed"
)

// Outcome is the result of delivering one report over one channel. Outcomes
// are recorded for logging, never retried.
type Outcome struct {
	Channel string        `json:"channel"`
	Status  OutcomeStatus `json:"status"`
	Detail  string        `json:"detail,omitempty"`
}

// Dispatcher delivers a finished report over one notification channel.
// Deliver never panics or errors past its boundary: transport problems fold
// into a Failed outcome.
type Dispatcher interface {
	Name() string
	Deliver(ctx context.Context, report string) Outcome
}

func delivered(channel, detail string) Outcome {
	return Outcome{Channel: channel, Status: StatusDelivered, Detail: detail}
}

func simulated(channel string) Outcome {
	return Outcome{Channel: channel, Status: StatusSimulated, Detail: "dry run"}
}

func failed(channel, detail string) Outcome {
	return Outcome{Channel: channel, Status: StatusFailed, Detail: detail}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
