package entity

import (
	"fmt"

	"github.com/jacentio/ordertable/internal/keyscheme"
	"github.com/jacentio/ordertable/store"
)

// Decoder turns a record into its typed entity.
type Decoder func(store.Record) (any, error)

// Registration binds a discriminator to its key scheme and decoder.
type Registration struct {
	// Entity is the discriminator (e.g., "LineItem").
	Entity string

	// Scheme is how records of the entity are keyed.
	Scheme keyscheme.Scheme

	// Decode decodes a record of the entity.
	Decode Decoder
}

// Registry decodes records of any registered entity by discriminator.
type Registry struct {
	byEntity map[string]Registration
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{byEntity: make(map[string]Registration)}
}

// Register adds a registration. It panics if the discriminator is already taken,
// so it should be called while wiring, not per request.
func (r *Registry) Register(reg Registration) {
	if _, dup := r.byEntity[reg.Entity]; dup {
		panic(fmt.Sprintf("entity: %s registered twice", reg.Entity))
	}
	r.byEntity[reg.Entity] = reg
}

// RegisterFactory registers the decoder of a factory under its discriminator.
func RegisterFactory[T any](r *Registry, f *Factory[T]) {
	r.Register(Registration{
		Entity: f.Entity(),
		Scheme: f.Scheme(),
		Decode: func(rec store.Record) (any, error) {
			return f.FromRecord(rec)
		},
	})
}

// Lookup returns the registration for a discriminator.
func (r *Registry) Lookup(entity string) (Registration, bool) {
	reg, ok := r.byEntity[entity]
	return reg, ok
}

// Decode decodes a record through the decoder registered for its discriminator.
func (r *Registry) Decode(rec store.Record) (any, error) {
	reg, ok := r.byEntity[rec.Entity()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, rec.Entity())
	}
	return reg.Decode(rec)
}
