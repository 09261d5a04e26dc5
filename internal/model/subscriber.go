package model

import (
	"strings"
	"time"
)

type SubscriberStatus string

const (
	SubscriberActive       SubscriberStatus = "active"
	SubscriberUnsubscribed SubscriberStatus = "unsubscribed"
	SubscriberBounced      SubscriberStatus = "bounced"
)

func (s SubscriberStatus) String() string { return string(s) }

func (s SubscriberStatus) Valid() bool {
	return s == SubscriberActive || s == SubscriberUnsubscribed || s == SubscriberBounced
}

// Subscriber is a recipient. Only active subscribers are eligible when a
// campaign's audience snapshot is taken.
type Subscriber struct {
	ID        string           `db:"id"`
	Email     string           `db:"email"`
	Name      string           `db:"name"`
	Status    SubscriberStatus `db:"status"`
	CreatedAt time.Time        `db:"created_at"`
	UpdatedAt time.Time        `db:"updated_at"`
}

// DisplayName returns the personalization value for {{name}}: the stored
// name, or the local part of the email when the name is empty.
func (s Subscriber) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	if i := strings.IndexByte(s.Email, '@'); i > 0 {
		return s.Email[:i]
	}
	return s.Email
}
