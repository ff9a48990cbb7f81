// mechanism.go provides the tagger helpers that attach classification
// metadata to an event's canonical exception slot.

package faultline

// AddExceptionMechanism ensures the event's canonical exception value carries
// a mechanism and merges partial into it field by field. A field that already
// has a value is never overwritten (first writer wins); Data keys merge under
// the same rule.
func AddExceptionMechanism(event *Event, partial *Mechanism) {
	if event == nil || partial == nil {
		return
	}
	value := event.exceptionValue()
	if value == nil {
		return
	}
	if value.Mechanism == nil {
		value.Mechanism = &Mechanism{}
	}
	m := value.Mechanism
	if m.Type == "" {
		m.Type = partial.Type
	}
	if m.Handled == nil {
		m.Handled = partial.Handled
	}
	if m.Synthetic == nil {
		m.Synthetic = partial.Synthetic
	}
	for k, v := range partial.Data {
		if m.Data == nil {
			m.Data = make(map[string]any, len(partial.Data))
		}
		if _, exists := m.Data[k]; !exists {
			m.Data[k] = v
		}
	}
}

// AddExceptionTypeValue ensures the event's canonical exception value exists
// and carries the given type and value. A stacktrace already attached to the
// slot is preserved.
func AddExceptionTypeValue(event *Event, value, typ string) {
	if event == nil {
		return
	}
	if event.Exception == nil {
		event.Exception = &Exception{}
	}
	if len(event.Exception.Values) == 0 {
		event.Exception.Values = []ExceptionValue{{}}
	}
	slot := &event.Exception.Values[0]
	slot.Type = typ
	slot.Value = value
}

// boolp returns a pointer for optional mechanism fields, keeping "not set"
// distinguishable from false.
func boolp(b bool) *bool {
	return &b
}
