package eventstore

import "sync"

// Mapper hydrates a typed event from its stored envelope.
type Mapper func(base *BaseEvent) (Event, error)

var (
	mappersMu sync.RWMutex
	mappers   = map[EventType]Mapper{}
)

// RegisterEventMapper binds an event type to its mapper. Call from package
// init of the aggregate's event definitions. Later registrations replace
// earlier ones.
func RegisterEventMapper(typ EventType, mapper Mapper) {
	mappersMu.Lock()
	defer mappersMu.Unlock()
	mappers[typ] = mapper
}

// MapEvent turns a stored envelope into its registered typed event. Types
// without a mapper are returned as the bare envelope: reducers ignore them,
// which keeps old stores readable by newer code and vice versa.
func MapEvent(base *BaseEvent) (Event, error) {
	mappersMu.RLock()
	mapper, ok := mappers[base.Type()]
	mappersMu.RUnlock()

	if !ok {
		return base, nil
	}
	return mapper(base)
}

type baseSetter interface {
	Event
	SetBaseEvent(*BaseEvent)
}

// GenericEventMapper hydrates event types that embed BaseEvent, decoding
// the stored payload into the typed struct.
func GenericEventMapper[T any, PT interface {
	baseSetter
	*T
}](base *BaseEvent) (Event, error) {
	event := PT(new(T))
	event.SetBaseEvent(base)
	if len(base.DataAsBytes()) > 0 {
		if err := base.UnmarshalData(event); err != nil {
			return nil, err
		}
	}
	return event, nil
}
