package repository

import (
	"time"

	"github.com/google/uuid"

	"github.com/smfc/matchday/pkg/logger"
)

// Option configures a store.
type Option func(*options)

type options struct {
	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

func defaultOptions() options {
	return options{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator overrides how new match and prediction ids are made.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// WithLogger sets the logger used by the SQL store.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
