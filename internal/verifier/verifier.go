package verifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownEvent = errors.New("no verifier registered for event")

// Verifier decides whether a submission solves an event's puzzle. A verifier
// must be a pure predicate: deterministic, no storage access, no side
// effects. Persisting a solved state is the puzzle gate's job alone.
type Verifier interface {
	Evaluate(submission json.RawMessage) (bool, error)
}

// VerifierFunc adapts a plain function to the Verifier interface.
type VerifierFunc func(submission json.RawMessage) (bool, error)

func (f VerifierFunc) Evaluate(submission json.RawMessage) (bool, error) {
	return f(submission)
}

// Registry maps event slugs to verifiers. Populated once at startup from
// static configuration, read-only afterwards.
type Registry struct {
	mu        sync.RWMutex
	verifiers map[string]Verifier
}

func NewRegistry() *Registry {
	return &Registry{
		verifiers: make(map[string]Verifier),
	}
}

func (r *Registry) Register(eventSlug string, v Verifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.verifiers[eventSlug]; ok {
		return fmt.Errorf("verifier already registered for event %q", eventSlug)
	}
	r.verifiers[eventSlug] = v
	return nil
}

func (r *Registry) Resolve(eventSlug string) (Verifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.verifiers[eventSlug]
	if !ok {
		return nil, ErrUnknownEvent
	}
	return v, nil
}
