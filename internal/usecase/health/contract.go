package health

import "context"

// Pinger checks availability of one dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Component is a named dependency probed by Check.
// A failing critical component makes the whole service unhealthy.
type Component struct {
	Name     string
	Pinger   Pinger
	Critical bool
}
