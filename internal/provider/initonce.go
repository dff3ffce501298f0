package provider

import "sync"

// InitOnce runs an initialization function until it succeeds once. Unlike
// sync.Once a failed attempt may be repeated by a later call.
type InitOnce struct {
	mu   sync.Mutex
	done bool
}

// Do runs fn unless a previous call already succeeded.
func (o *InitOnce) Do(fn func() error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.done {
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	o.done = true
	return nil
}
