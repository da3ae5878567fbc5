package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	models "storefront/model"
)

// Option configures a service.
type Option func(*options)

type options struct {
	log      logrus.FieldLogger
	observer Observer
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.log = l }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

func buildOptions(component string, opts []Option) options {
	o := options{log: logrus.StandardLogger(), observer: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	o.log = o.log.WithField("component", component)
	return o
}

func requirePID(pid int64) error {
	if pid <= 0 {
		return models.Invalid("pid", "must be > 0")
	}
	return nil
}

func requireAmount(amount int) error {
	if amount <= 0 {
		return models.Invalid("amount", "must be > 0")
	}
	if amount > models.MaxAmount {
		return models.Invalid("amount", "must be <= 2147483647")
	}
	return nil
}

func requireCartID(cartID string) error {
	if strings.TrimSpace(cartID) == "" {
		return models.Invalid("cart_id", "not specified")
	}
	return nil
}

// logFailure logs err at a level matching how surprising it is.
func logFailure(log logrus.FieldLogger, op string, err error) {
	entry := log.WithError(err).WithField("op", op)
	if errors.Is(err, models.ErrStore) && !errors.Is(err, context.Canceled) {
		entry.Error("store failure")
		return
	}
	entry.Info("request rejected")
}
