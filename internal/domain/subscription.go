package domain

import "time"

// Subscription is a registered callback for one event type. The pair
// (URL, EventType) is unique across the registry.
type Subscription struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	EventType EventType `json:"eventType"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegisterResult is returned by Registry.Register. Created is false when
// the pair was already registered, in which case Subscription is the
// existing record.
type RegisterResult struct {
	Subscription
	Created bool `json:"created"`
}

// UnregisterResult reports whether a matching subscription was removed.
type UnregisterResult struct {
	Removed bool `json:"removed"`
}
