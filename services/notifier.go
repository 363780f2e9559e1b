package services

const (
	EventFrpLog    = "frp-log"
	EventFrpStatus = "frp-status"
)

// Notifier pushes events to observers. Emit must not block and may drop events.
type Notifier interface {
	Emit(event string, payload interface{})
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Emit(string, interface{}) {}
