package rate

import (
	"context"
	"time"
)

// DefaultWindow is the attempt window when none is configured.
const DefaultWindow = 60 * time.Second

// Decision is the outcome of a single gate check.
type Decision struct {
	Allowed bool
	Wait    time.Duration
}

// Gate bounds attempts per action class. Check records an attempt when it
// is allowed; a maxAttempts of zero or less disables the gate.
type Gate interface {
	Check(ctx context.Context, action string, maxAttempts int) (Decision, error)
	Reset(ctx context.Context, action string) error
}

// Enforce runs g.Check and turns a denial into a [*LimitedError]. Backend
// errors are returned unchanged.
func Enforce(ctx context.Context, g Gate, action string, maxAttempts int) error {
	if g == nil {
		return nil
	}
	d, err := g.Check(ctx, action, maxAttempts)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &LimitedError{Action: action, Wait: d.Wait}
	}
	return nil
}
