package client

import (
	"errors"
	"sync"
)

// ErrEnProceso rejects a second submission of an action that has not finished.
var ErrEnProceso = errors.New("la operación ya está en proceso")

// InFlight is the set of action ids currently being submitted.
type InFlight struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{ids: make(map[string]struct{})}
}

// Begin claims id. The returned func releases it and is safe to call twice.
func (f *InFlight) Begin(id string) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ids[id]; ok {
		return nil, ErrEnProceso
	}
	f.ids[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.ids, id)
			f.mu.Unlock()
		})
	}, nil
}

func (f *InFlight) Activo(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.ids[id]
	return ok
}
