// Package activitymap turns auth activity events into flat audit records
// that can be written to logs or shipped to another system.
package activitymap

import (
	"context"
	"strings"
	"time"

	auth "github.com/hireloop/portal-auth"
)

const (
	FieldFromStatus = "from_status"
	FieldToStatus   = "to_status"
	FieldRole       = "role"
)

const systemActor = "system"

// Record is one audit line. Tenant is empty for platform level actions.
type Record struct {
	Tenant    string         `json:"tenant,omitempty"`
	ActorID   string         `json:"actor_id"`
	ActorRole string         `json:"actor_role,omitempty"`
	Action    string         `json:"action"`
	Subject   string         `json:"subject,omitempty"`
	Outcome   string         `json:"outcome"`
	Changes   map[string]any `json:"changes,omitempty"`
	At        time.Time      `json:"at"`
}

const (
	OutcomeOK     = "ok"
	OutcomeDenied = "denied"
)

// Option customizes the mapping
type Option func(*options)

type options struct {
	now    func() time.Time
	tenant func(auth.ActivityEvent) string
}

// WithClock sets the time used when an event carries none
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTenantResolver overrides how the tenant is read from an event
func WithTenantResolver(fn func(auth.ActivityEvent) string) Option {
	return func(o *options) {
		if fn != nil {
			o.tenant = fn
		}
	}
}

// Map converts an activity event into a Record
func Map(event auth.ActivityEvent, opts ...Option) Record {
	o := options{
		now:    func() time.Time { return time.Now().UTC() },
		tenant: func(e auth.ActivityEvent) string { return e.OrgID },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	at := event.OccurredAt
	if at.IsZero() {
		at = o.now()
	}

	actorID := strings.TrimSpace(event.Actor.ID)
	if actorID == "" {
		actorID = systemActor
	}

	return Record{
		Tenant:    strings.TrimSpace(o.tenant(event)),
		ActorID:   actorID,
		ActorRole: strings.TrimSpace(event.Actor.Type),
		Action:    string(event.EventType),
		Subject:   strings.TrimSpace(event.UserID),
		Outcome:   outcome(event.EventType),
		Changes:   changes(event),
		At:        at,
	}
}

// NewSink adapts a record writer into an auth.ActivitySink
func NewSink(write func(context.Context, Record) error, opts ...Option) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		if write == nil {
			return nil
		}
		return write(ctx, Map(event, opts...))
	})
}

func outcome(t auth.ActivityEventType) string {
	switch t {
	case auth.ActivityEventLoginFailure, auth.ActivityEventAccessDenied:
		return OutcomeDenied
	default:
		return OutcomeOK
	}
}

func changes(event auth.ActivityEvent) map[string]any {
	out := map[string]any{}
	for k, v := range event.Metadata {
		out[k] = v
	}
	if event.FromStatus != "" {
		out[FieldFromStatus] = event.FromStatus
	}
	if event.ToStatus != "" {
		out[FieldToStatus] = event.ToStatus
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
