package rate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited matches every [*LimitedError].
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps transport failures of the Redis gate.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// LimitedError reports a denied attempt and how long to wait.
type LimitedError struct {
	Action string
	Wait   time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("rate limited: %s, retry in %s", e.Action, e.Wait)
}

// Is makes errors.Is(err, ErrRateLimited) true.
func (e *LimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
