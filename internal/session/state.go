package session

import "fmt"

// State is the lifecycle position of a Session.
type State int

const (
	Idle State = iota
	Previewing
	Captured
	Persisted
)

var stateNames = [...]string{"idle", "previewing", "captured", "persisted"}

func (s State) String() string {
	if s < Idle || s > Persisted {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// EventType identifies session events.
type EventType int

const (
	// EventStateChanged carries a Transition.
	EventStateChanged EventType = iota
	// EventFrame carries the Frame produced by a tick.
	EventFrame
	// EventCaptured carries the *Capture just frozen.
	EventCaptured
	// EventPersisted carries the *Capture just stored.
	EventPersisted
	// EventDeviceError carries the error that released the device.
	EventDeviceError
)

// Transition is the payload of EventStateChanged.
type Transition struct {
	From, To State
}

// EventListener is called when an event occurs. Listeners run on the
// goroutine that caused the event after the session has released its locks,
// so a listener may call back into the Session (End from EventDeviceError,
// Tick from EventFrame).
type EventListener func(data interface{})

// On registers an event listener for the specified event type.
func (s *Session) On(event EventType, listener EventListener) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// emit triggers all listeners for the specified event type.
func (s *Session) emit(event EventType, data interface{}) {
	s.lmu.RLock()
	listeners := s.listeners[event]
	s.lmu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// event is one queued emission.
type event struct {
	typ  EventType
	data interface{}
}

// events queues emissions made while a lock is held.
type events []event

func (e *events) add(typ EventType, data interface{}) {
	*e = append(*e, event{typ: typ, data: data})
}

// flush emits queued events in order. Call it with no session lock held.
func (s *Session) flush(evs events) {
	for _, ev := range evs {
		s.emit(ev.typ, ev.data)
	}
}
