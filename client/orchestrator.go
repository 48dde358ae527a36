package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	auth "github.com/hireloop/portal-auth"
	"github.com/hireloop/portal-auth/integration"
)

// State of the login flow
type State string

const (
	StateIdle            State = "idle"
	StateSubmitting      State = "submitting"
	StateAuthenticated   State = "authenticated"
	StateFailed          State = "failed"
	StateRoutingDecision State = "routing_decision"
	StateNavigated       State = "navigated"
)

// Destinations
const (
	RouteAdmin            = "/admin"
	RouteClient           = "/client"
	RouteIntegrationSetup = "/client/integrations/greenhouse"
)

// DefaultRoutingDelay is the pause between the success notice and the
// routing decision
const DefaultRoutingDelay = time.Second

// Navigator moves the user to a route
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(route string)

func (f NavigatorFunc) Navigate(route string) { f(route) }

// Notifier shows transient messages
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Logger is satisfied by *slog.Logger
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Authenticator performs the credential exchange
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
}

// Orchestrator drives a login submission through authentication, session
// persistence and the delayed routing decision.
type Orchestrator struct {
	api       Authenticator
	session   *SessionContext
	gate      integration.StatusChecker
	navigator Navigator
	notifier  Notifier
	logger    Logger
	delay     time.Duration

	mu      sync.Mutex
	state   State
	message string
	pending map[*PendingRoute]struct{}
}

// Option configures the Orchestrator
type Option func(*Orchestrator)

// WithRoutingDelay overrides the delay before routing
func WithRoutingDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.delay = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator wires the flow together
func NewOrchestrator(api Authenticator, session *SessionContext, gate integration.StatusChecker, nav Navigator, notifier Notifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:       api,
		session:   session,
		gate:      gate,
		navigator: nav,
		notifier:  notifier,
		logger:    slog.Default().With("component", "login"),
		delay:     DefaultRoutingDelay,
		state:     StateIdle,
		pending:   make(map[*PendingRoute]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Message returns the last message shown to the user
func (o *Orchestrator) Message() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.message
}

func (o *Orchestrator) setState(state State, message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = state
	if message != "" {
		o.message = message
	}
}

// Submit runs the credential exchange. On success the session is
// persisted and the returned PendingRoute fires after the routing delay.
// On failure the flow is back to idle and the error carries the message
// that was shown.
func (o *Orchestrator) Submit(ctx context.Context, email, password string) (*PendingRoute, error) {
	if email == "" || password == "" {
		o.fail(ErrMissingCredentials.Message)
		return nil, ErrMissingCredentials
	}

	o.mu.Lock()
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	o.state = StateSubmitting
	o.mu.Unlock()

	resp, err := o.api.Login(ctx, email, password)
	if err != nil {
		o.fail(UserMessage(err))
		return nil, err
	}

	stored, err := o.session.Init(resp)
	if err != nil {
		o.fail(MessageLoginFailed)
		return nil, err
	}

	o.setState(StateAuthenticated, MessageLoginSuccess)
	o.notifier.Success(MessageLoginSuccess)

	return o.schedule(stored), nil
}

func (o *Orchestrator) fail(message string) {
	o.setState(StateFailed, message)
	o.notifier.Error(message)
	o.setState(StateIdle, "")
}

func (o *Orchestrator) schedule(user *StoredUser) *PendingRoute {
	ctx, cancel := context.WithCancel(context.Background())
	p := &PendingRoute{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	o.mu.Lock()
	o.pending[p] = struct{}{}
	o.mu.Unlock()

	go func() {
		defer func() {
			o.mu.Lock()
			delete(o.pending, p)
			o.mu.Unlock()
			cancel()
			close(p.done)
		}()

		timer := time.NewTimer(o.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			p.result = RouteResult{Err: ctx.Err()}
			return
		case <-timer.C:
		}

		p.result = o.route(ctx, p, user)
	}()

	return p
}

// route makes the routing decision for a persisted session. The side
// effects run under p.mu so a concurrent Cancel either wins or waits.
func (o *Orchestrator) route(ctx context.Context, p *PendingRoute, user *StoredUser) RouteResult {
	o.setState(StateRoutingDecision, "")

	route, ok := o.Decide(ctx, user.Role, user.Token)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancelled || ctx.Err() != nil {
		return RouteResult{Err: context.Canceled}
	}

	if !ok {
		o.logger.Warn("login with unknown role", "role", user.Role, "user_id", user.ID)
		if err := o.session.Teardown(); err != nil {
			o.logger.Error("failed to clear session", "error", err)
		}
		o.setState(StateIdle, MessageUnknownRole)
		o.notifier.Error(MessageUnknownRole)
		return RouteResult{}
	}

	o.navigator.Navigate(route)
	o.setState(StateNavigated, "")
	return RouteResult{Route: route, Navigated: true}
}

// Decide picks the destination for role. Only client_admin consults the
// integration gate and an unreachable gate lands on the portal home.
func (o *Orchestrator) Decide(ctx context.Context, role, token string) (string, bool) {
	switch {
	case auth.IsPlatformRole(role):
		return RouteAdmin, true
	case role == auth.RoleClientEditor, role == auth.RoleClientViewer:
		return RouteClient, true
	case role == auth.RoleClientAdmin:
		if o.gate == nil {
			return RouteClient, true
		}
		status, err := o.gate.CheckStatus(ctx, integration.Greenhouse, token)
		if err != nil {
			o.logger.Warn("integration status check failed, defaulting to portal", "error", err)
			return RouteClient, true
		}
		if !status.Connected {
			return RouteIntegrationSetup, true
		}
		return RouteClient, true
	default:
		return "", false
	}
}

// Close cancels every pending routing decision
func (o *Orchestrator) Close() {
	o.mu.Lock()
	pending := make([]*PendingRoute, 0, len(o.pending))
	for p := range o.pending {
		pending = append(pending, p)
	}
	o.mu.Unlock()

	for _, p := range pending {
		p.Cancel()
	}
}

// RouteResult is the outcome of a routing decision
type RouteResult struct {
	Route     string
	Navigated bool
	Err       error
}

// PendingRoute is a scheduled routing decision that can be discarded
// until it fires
type PendingRoute struct {
	cancel context.CancelFunc
	done   chan struct{}
	result RouteResult

	mu        sync.Mutex
	cancelled bool
}

// Cancel discards the decision. Nothing is navigated after Cancel returns
// unless navigation already happened.
func (p *PendingRoute) Cancel() {
	p.mu.Lock()
	p.cancelled = true
	p.mu.Unlock()
	p.cancel()
}

// Done is closed once the decision has run or was cancelled
func (p *PendingRoute) Done() <-chan struct{} {
	return p.done
}

// Result waits for the decision
func (p *PendingRoute) Result() RouteResult {
	<-p.done
	return p.result
}
