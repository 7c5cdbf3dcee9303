package domain

import (
	"encoding/json"
	"fmt"
)

// EventType is one member of the closed event catalog. The zero value is
// not a valid event type.
type EventType uint8

const (
	eventTypeUnknown EventType = iota
	PaymentReceived
	PaymentProcessed
	InvoiceProcessing
	InvoiceCompleted
)

// PingEvent is the wire name used for health probe deliveries. It is not a
// member of the registrable catalog.
const PingEvent = "ping"

type catalogEntry struct {
	name        string
	description string
}

// catalog is indexed by EventType; declaration order is list order.
var catalog = [...]catalogEntry{
	eventTypeUnknown:  {},
	PaymentReceived:   {"payment.received", "Triggered when a payment is received"},
	PaymentProcessed:  {"payment.processed", "Triggered when a payment is processed"},
	InvoiceProcessing: {"invoice.processing", "Triggered when an invoice begins processing"},
	InvoiceCompleted:  {"invoice.completed", "Triggered when an invoice is completed"},
}

var eventTypesByName = func() map[string]EventType {
	m := make(map[string]EventType, len(catalog)-1)
	for i := 1; i < len(catalog); i++ {
		m[catalog[i].name] = EventType(i)
	}
	return m
}()

// EventTypes returns every catalog member in declaration order.
func EventTypes() []EventType {
	out := make([]EventType, 0, len(catalog)-1)
	for i := 1; i < len(catalog); i++ {
		out = append(out, EventType(i))
	}
	return out
}

// EventTypeNames returns the wire names of the catalog in declaration order.
func EventTypeNames() []string {
	types := EventTypes()
	names := make([]string, len(types))
	for i, et := range types {
		names[i] = et.String()
	}
	return names
}

// IsValidEventType reports whether name is a registrable event type.
func IsValidEventType(name string) bool {
	_, ok := eventTypesByName[name]
	return ok
}

// ParseEventType maps a wire name onto the catalog.
func ParseEventType(name string) (EventType, error) {
	et, ok := eventTypesByName[name]
	if !ok {
		return eventTypeUnknown, &InvalidEventTypeError{Value: name}
	}
	return et, nil
}

// IsValid reports whether et is a catalog member.
func (et EventType) IsValid() bool {
	return et > eventTypeUnknown && int(et) < len(catalog)
}

func (et EventType) String() string {
	if !et.IsValid() {
		return fmt.Sprintf("EventType(%d)", uint8(et))
	}
	return catalog[et].name
}

// Description is the human-readable summary shown by the event listing.
func (et EventType) Description() string {
	if !et.IsValid() {
		return ""
	}
	return catalog[et].description
}

func (et EventType) MarshalText() ([]byte, error) {
	if !et.IsValid() {
		return nil, &InvalidEventTypeError{Value: et.String()}
	}
	return []byte(catalog[et].name), nil
}

func (et *EventType) UnmarshalText(text []byte) error {
	parsed, err := ParseEventType(string(text))
	if err != nil {
		return err
	}
	*et = parsed
	return nil
}

// MarshalJSON keeps the raw string wire representation.
func (et EventType) MarshalJSON() ([]byte, error) {
	text, err := et.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

func (et *EventType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("event type must be a string: %w", err)
	}
	return et.UnmarshalText([]byte(name))
}
