package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/authkit/session"
	"github.com/MrEthical07/authkit/validate"
)

// ProfileChanges holds the user-editable fields. Nil means unchanged.
type ProfileChanges struct {
	Name        *string
	Username    *string
	PhoneNumber *string
	Avatar      *string
}

func (c ProfileChanges) empty() bool {
	return c.Name == nil && c.Username == nil && c.PhoneNumber == nil && c.Avatar == nil
}

// ProfileUpdateMetrics carries metric IDs needed by the profile-update flow.
type ProfileUpdateMetrics struct {
	ProfileUpdate    int
	RateLimited      int
	ValidationReject int
}

// ProfileUpdateEvents carries audit event names used by the profile-update flow.
type ProfileUpdateEvents struct {
	ProfileUpdate string
	RateLimited   string
}

// ProfileUpdateDeps captures profile-update dependencies.
type ProfileUpdateDeps struct {
	CurrentProfile  func(ctx context.Context) (*session.UserProfile, error)
	CheckRate       func(ctx context.Context, action string) error
	UsernameChecker validate.UsernameChecker
	UpdateProfile   func(ctx context.Context, id string, changes ProfileChanges) (session.UserProfile, error)
	CacheInvalidate func()

	Effects Effects
	Metrics ProfileUpdateMetrics
	Events  ProfileUpdateEvents
	Errors  Errors
}

func normalizeProfileUpdateDeps(deps *ProfileUpdateDeps) {
	if deps.CheckRate == nil {
		deps.CheckRate = noRate
	}
	if deps.CacheInvalidate == nil {
		deps.CacheInvalidate = func() {}
	}
	deps.Effects.normalize()
	deps.Errors.normalize()
}

// RunUpdateProfile writes the allow-listed fields of the signed-in profile
// and drops the cached copy.
func RunUpdateProfile(ctx context.Context, changes ProfileChanges, deps ProfileUpdateDeps) (*session.UserProfile, error) {
	normalizeProfileUpdateDeps(&deps)
	fx := deps.Effects

	if deps.CurrentProfile == nil || deps.UpdateProfile == nil {
		return nil, deps.Errors.NotReady
	}

	current, err := deps.CurrentProfile(ctx)
	if err != nil {
		if errors.Is(err, deps.Errors.NotAuthenticated) || errors.Is(err, session.ErrNoSession) {
			return nil, deps.Errors.NotAuthenticated
		}
		return nil, err
	}

	if err := deps.CheckRate(ctx, ActionProfileUpdate); err != nil {
		fx.MetricInc(deps.Metrics.RateLimited)
		fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.RateLimited, UserID: current.ID, Err: err, Metadata: func() map[string]string {
			return map[string]string{"action": ActionProfileUpdate}
		}})
		return nil, err
	}

	normalized, err := normalizeProfileChanges(ctx, *current, changes, deps)
	if err != nil {
		fx.MetricInc(deps.Metrics.ValidationReject)
		return nil, err
	}

	updated, err := deps.UpdateProfile(ctx, current.ID, normalized)
	if err != nil {
		fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.ProfileUpdate, UserID: current.ID, Err: err})
		return nil, storeError(deps.Errors.Database, err)
	}
	deps.CacheInvalidate()

	fx.MetricInc(deps.Metrics.ProfileUpdate)
	fx.EmitAudit(ctx, AuditRecord{Event: deps.Events.ProfileUpdate, UserID: current.ID, Success: true, Metadata: func() map[string]string {
		return map[string]string{"fields": changedFields(normalized)}
	}})
	return &updated, nil
}

func normalizeProfileChanges(ctx context.Context, current session.UserProfile, changes ProfileChanges, deps ProfileUpdateDeps) (ProfileChanges, error) {
	if changes.empty() {
		return ProfileChanges{}, deps.Errors.MissingFields
	}

	var out ProfileChanges
	if changes.Name != nil {
		name := strings.TrimSpace(*changes.Name)
		if name == "" {
			return ProfileChanges{}, deps.Errors.MissingFields
		}
		out.Name = &name
	}
	if changes.Username != nil {
		checked := validate.UsernameLocal(*changes.Username)
		if checked.Valid && checked.Value != current.Username {
			checked = validate.Username(ctx, checked.Value, deps.UsernameChecker)
		}
		if !checked.Valid {
			return ProfileChanges{}, invalid(deps.Errors.UsernameInvalid, "username", checked.Reason)
		}
		out.Username = &checked.Value
	}
	if changes.PhoneNumber != nil {
		phone := strings.TrimSpace(*changes.PhoneNumber)
		out.PhoneNumber = &phone
	}
	if changes.Avatar != nil {
		avatar := strings.TrimSpace(*changes.Avatar)
		out.Avatar = &avatar
	}
	return out, nil
}

func changedFields(c ProfileChanges) string {
	var fields []string
	if c.Name != nil {
		fields = append(fields, "name")
	}
	if c.Username != nil {
		fields = append(fields, "username")
	}
	if c.PhoneNumber != nil {
		fields = append(fields, "phone_number")
	}
	if c.Avatar != nil {
		fields = append(fields, "avatar")
	}
	return strings.Join(fields, ",")
}
