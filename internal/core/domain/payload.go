package domain

// Payload is one decoded API response body.
type Payload map[string]any

// Params is the parameter map for one API request. The aggregator
// copies it per call; a Params value handed to the session layer is
// never mutated after the call is issued.
type Params map[string]string

// Clone returns an independent copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Sub returns the map under key, or nil if absent or not an object.
func (p Payload) Sub(key string) map[string]any {
	m, _ := p[key].(map[string]any)
	return m
}
