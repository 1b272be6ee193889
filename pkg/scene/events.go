package scene

// EventType names a pointer event delivered to element listeners.
type EventType string

const (
	EventClick        EventType = "click"
	EventPointerDown  EventType = "pointerdown"
	EventPointerMove  EventType = "pointermove"
	EventPointerUp    EventType = "pointerup"
	EventPointerEnter EventType = "pointerenter"
	EventPointerLeave EventType = "pointerleave"
	EventWheel        EventType = "wheel"
)

// bubbles reports whether events of this type propagate to ancestors.
// Enter and leave are delivered to each element of the hover chain directly.
func (t EventType) bubbles() bool {
	return t != EventPointerEnter && t != EventPointerLeave
}

// Event is a pointer event. X/Y are in content space, ScreenX/ScreenY in
// viewport space.
type Event struct {
	Type          EventType
	Target        *Element
	CurrentTarget *Element

	X, Y             float64
	ScreenX, ScreenY float64
	DeltaY           float64

	stopped bool
}

// StopPropagation prevents the event from reaching further ancestors.
func (ev *Event) StopPropagation() { ev.stopped = true }

// Listener handles an event.
type Listener func(*Event)

// ListenerID identifies a registration on one element.
type ListenerID uint64

type listener struct {
	id ListenerID
	fn Listener
}

// AddEventListener registers fn for events of type t on e.
func (e *Element) AddEventListener(t EventType, fn Listener) ListenerID {
	if e.listeners == nil {
		e.listeners = make(map[EventType][]listener)
	}
	e.nextListener++
	id := e.nextListener
	e.listeners[t] = append(e.listeners[t], listener{id: id, fn: fn})
	return id
}

// RemoveEventListener unregisters a listener. It reports false if the id was
// not registered for t.
func (e *Element) RemoveEventListener(t EventType, id ListenerID) bool {
	ls := e.listeners[t]
	for i, l := range ls {
		if l.id == id {
			e.listeners[t] = append(ls[:i:i], ls[i+1:]...)
			if len(e.listeners[t]) == 0 {
				delete(e.listeners, t)
			}
			return true
		}
	}
	return false
}

// ListenerCount returns the number of listeners for t on e.
func (e *Element) ListenerCount(t EventType) int {
	return len(e.listeners[t])
}

// TotalListeners returns the number of listeners of any type on e.
func (e *Element) TotalListeners() int {
	n := 0
	for _, ls := range e.listeners {
		n += len(ls)
	}
	return n
}

// fire invokes e's listeners for ev.Type. The slice is copied so handlers may
// add or remove listeners while running.
func (e *Element) fire(ev *Event) {
	ls := e.listeners[ev.Type]
	if len(ls) == 0 {
		return
	}
	snapshot := make([]listener, len(ls))
	copy(snapshot, ls)
	ev.CurrentTarget = e
	for _, l := range snapshot {
		l.fn(ev)
	}
}

// Dispatch delivers ev to its target and, for bubbling types, to each
// ancestor until a listener stops propagation.
func Dispatch(ev *Event) {
	if ev.Target == nil {
		return
	}
	if !ev.Type.bubbles() {
		ev.Target.fire(ev)
		return
	}
	for n := ev.Target; n != nil && !ev.stopped; n = n.parent {
		n.fire(ev)
	}
}
