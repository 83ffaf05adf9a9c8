package core

import (
	"time"

	"roboarm/pkg/types"
)

// Event is a discrete input delivered to the playback state machine.
type Event interface {
	// Type returns the event type
	Type() EventType
	// Source names the producer (window, ipc client, http)
	Source() string
	// Timestamp returns when the event was created
	Timestamp() time.Time
}

type EventType string

const (
	EventTypePointer  EventType = "pointer"
	EventTypeRecord   EventType = "record"
	EventTypePlayback EventType = "play"
	EventTypeReset    EventType = "reset"
)

// ParseEventType maps the wire name of an event to its type.
func ParseEventType(s string) (EventType, bool) {
	switch t := EventType(s); t {
	case EventTypePointer, EventTypeRecord, EventTypePlayback, EventTypeReset:
		return t, true
	}
	return "", false
}

// BaseEvent is embedded by every concrete event.
type BaseEvent struct {
	eventType EventType
	source    string
	timestamp time.Time
}

// NewBaseEvent stamps an event with the current time.
func NewBaseEvent(eventType EventType, source string) BaseEvent {
	return BaseEvent{
		eventType: eventType,
		source:    source,
		timestamp: time.Now(),
	}
}

func (be BaseEvent) Type() EventType      { return be.eventType }
func (be BaseEvent) Source() string       { return be.source }
func (be BaseEvent) Timestamp() time.Time { return be.timestamp }

// PointerEvent moves the live pointer.
type PointerEvent struct {
	BaseEvent
	Position types.Point2D
}

// NewPointerEvent moves the pointer to pos.
func NewPointerEvent(source string, pos types.Point2D) *PointerEvent {
	return &PointerEvent{
		BaseEvent: NewBaseEvent(EventTypePointer, source),
		Position:  pos,
	}
}

// RecordEvent appends the pointer position current at the time the event is
// applied, not the position at the time it was created.
type RecordEvent struct {
	BaseEvent
}

// NewRecordEvent records the pointer as a waypoint.
func NewRecordEvent(source string) *RecordEvent {
	return &RecordEvent{BaseEvent: NewBaseEvent(EventTypeRecord, source)}
}

type PlaybackEvent struct {
	BaseEvent
}

// NewPlaybackEvent starts playback.
func NewPlaybackEvent(source string) *PlaybackEvent {
	return &PlaybackEvent{BaseEvent: NewBaseEvent(EventTypePlayback, source)}
}

type ResetEvent struct {
	BaseEvent
}

// NewResetEvent clears the waypoints.
func NewResetEvent(source string) *ResetEvent {
	return &ResetEvent{BaseEvent: NewBaseEvent(EventTypeReset, source)}
}

// NewEvent builds an event from its type. pos is only used by pointer events.
func NewEvent(t EventType, source string, pos types.Point2D) Event {
	switch t {
	case EventTypePointer:
		return NewPointerEvent(source, pos)
	case EventTypeRecord:
		return NewRecordEvent(source)
	case EventTypePlayback:
		return NewPlaybackEvent(source)
	case EventTypeReset:
		return NewResetEvent(source)
	}
	return nil
}
