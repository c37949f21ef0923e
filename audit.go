package authkit

import (
	"context"
	"time"

	"github.com/MrEthical07/authkit/internal/audit"
	"github.com/MrEthical07/authkit/internal/flows"
)

const (
	auditEventLogin                = "login"
	auditEventLoginFailed          = "login_failed"
	auditEventLoginDisabled        = "login_disabled"
	auditEventSignup               = "signup"
	auditEventSignupFailed         = "signup_failed"
	auditEventSignupRollback       = "signup_rollback"
	auditEventLogout               = "logout"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordUpdate       = "password_update"
	auditEventProfileUpdate        = "profile_update"
	auditEventRateLimited          = "rate_limited"
	auditEventSessionExpired       = "session_expired"
)

// auditSinks combines the caller's sink with the log_user_action forwarder.
func (c *Client) auditSinks(local AuditSink) AuditSink {
	var sinks audit.MultiSink
	if local != nil {
		sinks = append(sinks, local)
	}
	if c.config.Audit.ForwardToBackend {
		sinks = append(sinks, audit.NewForwardSink(c.forwardAudit, c.config.Audit.ForwardTimeout, c.logger))
	}
	switch len(sinks) {
	case 0:
		return audit.NoOpSink{}
	case 1:
		return sinks[0]
	}
	return sinks
}

func (c *Client) forwardAudit(ctx context.Context, event AuditEvent) error {
	extra := make(map[string]string, len(event.Metadata)+2)
	for k, v := range event.Metadata {
		extra[k] = v
	}
	extra["event_id"] = event.ID
	if event.Error != "" {
		extra["error"] = event.Error
	}
	return c.backend.LogUserAction(ctx, ActionLog{
		UserID:    event.UserID,
		Action:    event.EventType,
		Target:    event.Target,
		ExtraData: extra,
	})
}

// emitAudit turns a flow record into an event. Metadata is only built when
// the dispatcher is running.
func (c *Client) emitAudit(ctx context.Context, rec flows.AuditRecord) {
	if c == nil || c.audit == nil {
		return
	}

	var metadata map[string]string
	if rec.Metadata != nil {
		metadata = rec.Metadata()
	}
	if id := deviceIDFromContext(ctx); id != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["device_id"] = id
	}

	event := AuditEvent{
		Timestamp: c.now().UTC(),
		EventType: rec.Event,
		UserID:    rec.UserID,
		Target:    rec.Target,
		Success:   rec.Success,
		Metadata:  metadata,
	}
	if rec.Err != nil {
		event.Error = string(c.classify(rec.Err))
	}

	c.audit.Emit(context.WithoutCancel(ctx), event)
}

// AuditDropped returns how many events the dispatcher discarded.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

func auditTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
