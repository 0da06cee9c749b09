package action

// Payload is the data dispatched together with a Constant.
// A nil Payload is valid and reads as empty.
type Payload map[string]any

// Get returns the value stored under key, or nil.
func (p Payload) Get(key string) any {
	if p == nil {
		return nil
	}
	return p[key]
}

// String returns the string stored under key, or "" when it is absent or
// not a string.
func (p Payload) String(key string) string {
	s, _ := p.Get(key).(string)
	return s
}

// Clone returns a shallow copy of p.
func (p Payload) Clone() Payload {
	if p == nil {
		return Payload{}
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
