// Package notify pushes an end-of-scan summary to external channels.
package notify

import (
	"context"

	"go.uber.org/multierr"
)

type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// Multi fans one message out to every configured notifier and collects every
// failure.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var errs error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, title, text); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
