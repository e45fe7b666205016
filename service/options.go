package service

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jacentio/ordertable/entity"
)

// Option is a functional option for configuring a service.
type Option func(*Options)

// Options holds the configuration shared by [CustomerService] and [OrderService].
type Options struct {
	logger *slog.Logger
	clock  func() time.Time
	newID  func() (uuid.UUID, error)
}

func newOptions(opts []Option) *Options {
	o := &Options{
		logger: slog.Default(),
		clock:  time.Now,
		newID:  uuid.NewV7,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock sets the clock used for customer creation dates. Defaults to [time.Now].
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.clock = clock
	}
}

// WithIDGenerator sets the generator of address and order ids. Ids must be
// time-ordered (version 7); creation timestamps are read back from them.
// Defaults to [uuid.NewV7].
func WithIDGenerator(newID func() (uuid.UUID, error)) Option {
	return func(o *Options) {
		o.newID = newID
	}
}

// createdAt returns the creation timestamp embedded in a version 7 id.
func createdAt(id uuid.UUID) string {
	sec, nsec := id.Time().UnixTime()
	return time.Unix(sec, nsec).UTC().Format(entity.TimestampLayout)
}
