package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next tick.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// A resource was registered, loaded or had its payload replaced.
	/* Context usage:
	 * ResourceEvent data = context.Data.(ResourceEvent)
	 */
	EVENT_CODE_RESOURCE_INFO_CHANGED SystemEventCode = 0x02

	// A resource was unregistered.
	/* Context usage:
	 * ResourceEvent data = context.Data.(ResourceEvent)
	 */
	EVENT_CODE_RESOURCE_DELETED SystemEventCode = 0x03

	// A watched file was created or written.
	/* Context usage:
	 * string path = context.Data.(string)
	 */
	EVENT_CODE_FILE_CHANGED SystemEventCode = 0x04

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type EventContext struct {
	Type SystemEventCode
	Data interface{}
}

/** @brief Payload of the resource notifications. */
type ResourceEvent struct {
	Name       string `json:"name"`
	TypeName   string `json:"type"`
	HasPayload bool   `json:"loaded"`
}

// Should return true if handled.
type FnOnEvent func(sender interface{}, listener interface{}, context EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

/**
 * @brief Synchronous event dispatcher. Callbacks run on the goroutine that
 * fires the event.
 */
type EventSystem struct {
	mutex      sync.RWMutex
	registered map[SystemEventCode][]*registeredEvent
}

func NewEventSystem() *EventSystem {
	return &EventSystem{
		registered: make(map[SystemEventCode][]*registeredEvent),
	}
}

func (es *EventSystem) Shutdown() error {
	es.mutex.Lock()
	defer es.mutex.Unlock()
	es.registered = make(map[SystemEventCode][]*registeredEvent)
	return nil
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listener combos will not be registered again and will cause this to return FALSE.
 * @param code The event code to listen for.
 * @param listener A pointer to a listener instance. Can be nil.
 * @param onEvent The callback function to be invoked when the event code is fired.
 * @returns TRUE if the event is successfully registered; otherwise false.
 */
func (es *EventSystem) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	for _, e := range es.registered[code] {
		if listener != nil && e.listener == listener {
			LogWarn("listener already registered for event code `%d`", code)
			return false
		}
	}
	es.registered[code] = append(es.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code. If no matching
 * registration is found, this function returns FALSE.
 */
func (es *EventSystem) Unregister(code SystemEventCode, listener interface{}) bool {
	es.mutex.Lock()
	defer es.mutex.Unlock()

	events := es.registered[code]
	for i, e := range events {
		if e.listener == listener {
			es.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * TRUE, the event is considered handled and is not passed on to any more listeners.
 * @returns TRUE if handled, otherwise FALSE.
 */
func (es *EventSystem) Fire(sender interface{}, context EventContext) bool {
	es.mutex.RLock()
	events := append([]*registeredEvent(nil), es.registered[context.Type]...)
	es.mutex.RUnlock()

	for _, e := range events {
		if e.callback(sender, e.listener, context) {
			return true
		}
	}
	return false
}

func (es *EventSystem) ResourceInfoChanged(name, typeName string, hasPayload bool) {
	es.Fire(es, EventContext{
		Type: EVENT_CODE_RESOURCE_INFO_CHANGED,
		Data: ResourceEvent{Name: name, TypeName: typeName, HasPayload: hasPayload},
	})
}

func (es *EventSystem) ResourceDeleted(name, typeName string, hasPayload bool) {
	es.Fire(es, EventContext{
		Type: EVENT_CODE_RESOURCE_DELETED,
		Data: ResourceEvent{Name: name, TypeName: typeName, HasPayload: hasPayload},
	})
}
