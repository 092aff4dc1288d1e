package player

import "fmt"

// EventType identifies an asynchronous notification from an Output.
type EventType int

const (
	EventTimeUpdate    EventType = iota + 1 // position progressed
	EventDurationKnown                      // source metadata loaded
	EventEnded                              // playback reached the end
	EventLoadFailed                         // source could not be loaded or played
)

func (t EventType) String() string {
	switch t {
	case EventTimeUpdate:
		return "timeupdate"
	case EventDurationKnown:
		return "durationknown"
	case EventEnded:
		return "ended"
	case EventLoadFailed:
		return "loadfailed"
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Event is raised by an Output. Generation is the value passed to the Load
// call the event belongs to.
type Event struct {
	Generation uint64
	Type       EventType
	Position   float64 // EventTimeUpdate
	Duration   float64 // EventDurationKnown
	Err        error   // EventLoadFailed
}

// Output is the single media handle driven by a Coordinator.
// Load starts loading asynchronously; the outcome arrives as events.
type Output interface {
	Load(generation uint64, src string) error
	Play() error
	Pause() error
	SetPosition(seconds float64) error
	SetVolume(volume float64) error
	Events() <-chan Event
	Close() error
}
