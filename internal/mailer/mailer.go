// Package mailer wraps the outbound mail-delivery channel. A Transmitter
// performs exactly one network transmission per Send call and never returns a
// Go error: every failure is folded into the Result so the dispatch loop can
// record it per recipient. Retry policy lives in the caller.
package mailer

import "context"

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Email is one fully-rendered message.
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string // optional plain-text alternative
}

// Result is the classified outcome of a single delivery attempt.
type Result struct {
	Status            Status
	ProviderMessageID string
	Error             string // human-readable, set when Status == failed
}

func (r Result) Sent() bool { return r.Status == StatusSent }

type Transmitter interface {
	Send(ctx context.Context, e Email) Result
}

// Sent builds a success result.
func Sent(providerMessageID string) Result {
	return Result{Status: StatusSent, ProviderMessageID: providerMessageID}
}

// Failed builds a failure result from any error.
func Failed(err error) Result {
	return Result{Status: StatusFailed, Error: err.Error()}
}
