package flows

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MrEthical07/authkit/internal/rate"
	"github.com/MrEthical07/authkit/session"
)

var (
	testErrors = Errors{
		NotReady:         errors.New("not ready"),
		MissingFields:    errors.New("missing-fields"),
		InvalidEmail:     errors.New("invalid-email"),
		WeakPassword:     errors.New("weak-password"),
		UsernameInvalid:  errors.New("username-invalid"),
		UserNotFound:     errors.New("user-not-found"),
		UserDisabled:     errors.New("user-disabled"),
		Database:         errors.New("database-error"),
		NotAuthenticated: errors.New("not-authenticated"),
	}
	errRemote = errors.New("invalid_credentials")
)

// recorder captures every call a flow makes, in order.
type recorder struct {
	mu     sync.Mutex
	calls  []string
	audits []AuditRecord
	warns  []string
	counts map[int]int
}

func newRecorder() *recorder {
	return &recorder{counts: make(map[int]int)}
}

func (r *recorder) call(name string) {
	r.mu.Lock()
	r.calls = append(r.calls, name)
	r.mu.Unlock()
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) called(name string) bool {
	for _, c := range r.Calls() {
		if c == name {
			return true
		}
	}
	return false
}

func (r *recorder) effects() Effects {
	return Effects{
		MetricInc: func(id int) {
			r.mu.Lock()
			r.counts[id]++
			r.mu.Unlock()
		},
		EmitAudit: func(_ context.Context, rec AuditRecord) {
			r.mu.Lock()
			r.audits = append(r.audits, rec)
			r.mu.Unlock()
		},
		Warn: func(msg string, _ ...any) {
			r.mu.Lock()
			r.warns = append(r.warns, msg)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) audit(event string) (AuditRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.audits {
		if a.Event == event {
			return a, true
		}
	}
	return AuditRecord{}, false
}

func (r *recorder) count(id int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}

func sameCalls(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func gateCheck(g rate.Gate, max int) func(context.Context, string) error {
	return func(ctx context.Context, action string) error {
		return rate.Enforce(ctx, g, action, max)
	}
}

func activeProfile(id string) session.UserProfile {
	return session.UserProfile{
		ID:       id,
		Email:    "alice@example.com",
		Name:     "Alice",
		Username: "alice",
		Role:     session.RoleMember,
		IsActive: true,
	}
}

func fixedClock() func() time.Time {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func strPtr(s string) *string { return &s }
