package model

import "time"

// NotificationKind is the closed set of alert kinds the rule engine emits.
type NotificationKind int

const (
	// KindWarning fires ahead of an event, at the configured lead time.
	KindWarning NotificationKind = iota
	// KindStart fires when an event is about to start.
	KindStart
)

func (k NotificationKind) String() string {
	switch k {
	case KindWarning:
		return "warning"
	case KindStart:
		return "start"
	default:
		return "unknown"
	}
}

// NotificationRecord identifies one pending or active alert. Identity for
// dedup purposes is the (EventID, Kind) pair.
type NotificationRecord struct {
	EventID   string
	Kind      NotificationKind
	CreatedAt time.Time
}
