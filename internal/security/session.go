// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package security

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/tidedesk/internal/util"
)

// Session timing defaults.
const (
	// DefaultSessionTimeout is the total inactivity allowance.
	DefaultSessionTimeout = 30 * time.Minute

	// DefaultWarningLead is how long before expiry the warning appears.
	DefaultWarningLead = 5 * time.Minute

	// DefaultLogoutCountdown is the delay between a completed auto sign-out
	// and the move to the login screen.
	DefaultLogoutCountdown = 3 * time.Second

	// maxWarningLead caps the lead set through SetSessionTimeout.
	maxWarningLead = 5 * time.Minute
)

// Expiry reasons.
const (
	ReasonNoActivity = "session timeout: no activity"
	ReasonDeclined   = "session timeout: user did not respond"
)

// Controller errors.
var (
	ErrControllerStopped = errors.New("session controller stopped")
	ErrNotInitialized    = errors.New("session controller not initialized")
	ErrSessionNotWarning = errors.New("session is not in the warning state")
	ErrInvalidTimeout    = errors.New("session timeout must be a positive number of minutes")
)

// =============================================================================
// STATE
// =============================================================================

// SessionState is the lifecycle phase of the signed-in session.
type SessionState int

const (
	StateInactive SessionState = iota
	StateActive
	StateWarning
	StateExpired
)

// String returns the state name.
func (s SessionState) String() string {
	switch s {
	case StateInactive:
		return "INACTIVE"
	case StateActive:
		return "ACTIVE"
	case StateWarning:
		return "WARNING"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// SessionStatus is a point-in-time view of the session.
type SessionStatus struct {
	IsActive       bool
	State          SessionState
	LastActivityAt time.Time
	TimeRemaining  time.Duration
	TotalTimeout   time.Duration
	WarningLead    time.Duration
	User           AuthState
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// AuthState is one value of the authentication-state stream. A zero
// UserID means nobody is signed in.
type AuthState struct {
	UserID string
	Email  string
}

// SignedIn reports whether the state carries a user.
func (a AuthState) SignedIn() bool { return a.UserID != "" }

// Authenticator is what the controller needs from the auth provider.
type Authenticator interface {
	// Subscribe delivers the current state, then every change, until
	// the returned cancel func is called.
	Subscribe() (<-chan AuthState, func())
	SignOut(ctx context.Context) error
}

// Toaster shows transient notices. The telemetry notifier implements it.
type Toaster interface {
	ShowSuccess(msg string)
	ShowWarningFor(msg string, ttl time.Duration)
}

// =============================================================================
// OUTBOUND EVENTS
// =============================================================================

// SessionEventKind identifies a controller notification.
type SessionEventKind int

const (
	EventKindStarted SessionEventKind = iota
	EventKindWarning
	EventKindExtended
	EventKindExpired
	EventKindSignedOut
	EventKindNavigateLogin
	EventKindStopped
)

func (k SessionEventKind) String() string {
	switch k {
	case EventKindStarted:
		return "started"
	case EventKindWarning:
		return "warning"
	case EventKindExtended:
		return "extended"
	case EventKindExpired:
		return "expired"
	case EventKindSignedOut:
		return "signed_out"
	case EventKindNavigateLogin:
		return "navigate_login"
	case EventKindStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SessionEvent is sent on the Events channel.
type SessionEvent struct {
	Kind      SessionEventKind
	At        time.Time
	Remaining time.Duration // warning: time left; signed_out: countdown
	Reason    string        // expired, signed_out
	Err       error         // signed_out: sign-out failure, if any
}

// =============================================================================
// CONTROLLER
// =============================================================================

// SessionController runs the Inactive -> Active -> Warning -> Expired ->
// Inactive lifecycle. One goroutine owns the state and both timers; every
// input is a message on its inbox, handled in arrival order and
// acknowledged once handled. Timer callbacks carry the generation of the
// pair that scheduled them, and fires from a cancelled pair are dropped.
type SessionController struct {
	clock    util.Clock
	auth     Authenticator
	recorder EventRecorder
	toaster  Toaster

	inbox  chan request
	events chan SessionEvent
	done   chan struct{}

	initOnce  sync.Once
	closeOnce sync.Once
	started   atomic.Bool
	unsub     func()

	// Owned by the loop goroutine.
	state        SessionState
	user         AuthState
	lastActivity time.Time
	total        time.Duration
	lead         time.Duration
	countdown    time.Duration
	warningTimer util.Timer
	expireTimer  util.Timer
	navTimer     util.Timer
	gen          uint64
	outbox       []SessionEvent

	// Snapshot for Status, written by the loop after each input.
	snapMu sync.RWMutex
	snap   SessionStatus
}

// SessionOption configures a SessionController.
type SessionOption func(*SessionController)

// WithSessionClock replaces the time source.
func WithSessionClock(c util.Clock) SessionOption {
	return func(s *SessionController) { s.clock = c }
}

// WithTimeouts sets the total timeout and warning lead.
func WithTimeouts(total, lead time.Duration) SessionOption {
	return func(s *SessionController) {
		if total > 0 && lead > 0 && lead < total {
			s.total = total
			s.lead = lead
		}
	}
}

// WithLogoutCountdown sets the pause before navigating to login after an
// automatic sign-out.
func WithLogoutCountdown(d time.Duration) SessionOption {
	return func(s *SessionController) {
		if d >= 0 {
			s.countdown = d
		}
	}
}

// WithRecorder sets the security event sink.
func WithRecorder(r EventRecorder) SessionOption {
	return func(s *SessionController) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithToaster sets where user-facing notices go.
func WithToaster(t Toaster) SessionOption {
	return func(s *SessionController) { s.toaster = t }
}

// NewSessionController returns a controller bound to auth. Nothing runs
// until Initialize.
func NewSessionController(auth Authenticator, opts ...SessionOption) *SessionController {
	c := &SessionController{
		clock:     util.RealClock{},
		auth:      auth,
		recorder:  NopRecorder{},
		inbox:     make(chan request),
		events:    make(chan SessionEvent, 64),
		done:      make(chan struct{}),
		total:     DefaultSessionTimeout,
		lead:      DefaultWarningLead,
		countdown: DefaultLogoutCountdown,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.publishLocked()
	return c
}

// Events delivers notifications for the UI. The channel is buffered and
// the controller never waits on it; if it fills, events are dropped and
// logged.
func (c *SessionController) Events() <-chan SessionEvent {
	return c.events
}

// Initialize starts the loop and subscribes to the auth stream. Calling it
// again has no effect. The controller stops when ctx is cancelled.
func (c *SessionController) Initialize(ctx context.Context) {
	c.initOnce.Do(func() {
		c.started.Store(true)
		go c.run()

		states, unsub := c.auth.Subscribe()
		c.unsub = unsub
		go func() {
			for {
				select {
				case st, ok := <-states:
					if !ok {
						return
					}
					if err := c.send(authChanged{state: st}); err != nil {
						return
					}
				case <-ctx.Done():
					c.Close()
					return
				case <-c.done:
					return
				}
			}
		}()
	})
}

// Close stops the loop and cancels any timers.
func (c *SessionController) Close() {
	c.closeOnce.Do(func() {
		if c.unsub != nil {
			c.unsub()
		}
		close(c.done)
	})
}

// Status returns the current snapshot. TimeRemaining is measured at the
// time of the call.
func (c *SessionController) Status() SessionStatus {
	c.snapMu.RLock()
	st := c.snap
	c.snapMu.RUnlock()

	if st.IsActive {
		st.TimeRemaining = st.TotalTimeout - c.clock.Now().Sub(st.LastActivityAt)
		if st.TimeRemaining < 0 {
			st.TimeRemaining = 0
		}
	}
	return st
}

// Activity reports user interaction at at. While Active it restarts the
// timer pair; in any other state it is ignored.
func (c *SessionController) Activity(at time.Time) error {
	return c.send(activityInput{at: at})
}

// Extend answers the warning prompt with "stay signed in".
func (c *SessionController) Extend() error {
	return c.send(extendInput{})
}

// Decline answers the warning prompt with "sign out", or dismisses it.
func (c *SessionController) Decline() error {
	return c.send(declineInput{})
}

// SetSessionTimeout changes the total timeout to minutes. The warning lead
// becomes min(5 minutes, 20% of the total). An active session restarts its
// timers at once. During a warning the session returns to Active with a
// fresh pair and an Extended event hides the prompt.
func (c *SessionController) SetSessionTimeout(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTimeout, minutes)
	}
	total := time.Duration(minutes) * time.Minute
	lead := total / 5
	if lead > maxWarningLead {
		lead = maxWarningLead
	}
	return c.send(setTimeoutInput{total: total, lead: lead})
}

// ManualLogout stops tracking and signs out, returning the sign-out error.
func (c *SessionController) ManualLogout(ctx context.Context) error {
	if err := c.send(stopInput{}); err != nil {
		return err
	}
	if err := c.auth.SignOut(ctx); err != nil {
		logSessionEvent("MANUAL_LOGOUT_FAILED", fmt.Sprintf("err=%v", err))
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// =============================================================================
// LOOP
// =============================================================================

type request struct {
	msg any
	ack chan error
}

type (
	authChanged     struct{ state AuthState }
	activityInput   struct{ at time.Time }
	extendInput     struct{}
	declineInput    struct{}
	stopInput       struct{}
	setTimeoutInput struct{ total, lead time.Duration }
	timerFired      struct {
		kind timerKind
		gen  uint64
	}
	signOutDone struct {
		err error
		gen uint64
	}
)

type timerKind int

const (
	timerWarning timerKind = iota
	timerExpire
	timerNavigate
)

// send hands msg to the loop and waits until it has been handled.
func (c *SessionController) send(msg any) error {
	if !c.started.Load() {
		return ErrNotInitialized
	}
	ack := make(chan error, 1)
	select {
	case c.inbox <- request{msg: msg, ack: ack}:
	case <-c.done:
		return ErrControllerStopped
	}
	select {
	case err := <-ack:
		return err
	case <-c.done:
		return ErrControllerStopped
	}
}

func (c *SessionController) run() {
	for {
		select {
		case req := <-c.inbox:
			err := c.handle(req.msg)
			c.publish()
			c.flush()
			req.ack <- err
		case <-c.done:
			c.cancelTimers()
			c.stopNavigate()
			return
		}
	}
}

func (c *SessionController) handle(msg any) error {
	switch m := msg.(type) {
	case authChanged:
		c.onAuthChanged(m.state)
	case activityInput:
		if c.state == StateActive {
			c.lastActivity = m.at
			c.startTimers()
		}
	case extendInput:
		if c.state != StateWarning {
			return ErrSessionNotWarning
		}
		c.lastActivity = c.clock.Now()
		c.state = StateActive
		c.startTimers()
		c.recorder.Record(SecurityEvent{Type: EventSessionExtended, Subject: c.user.Email, Success: true})
		logSessionEvent("SESSION_EXTENDED", "user="+util.MaskEmail(c.user.Email))
		if c.toaster != nil {
			c.toaster.ShowSuccess("Session extended")
		}
		c.emit(SessionEvent{Kind: EventKindExtended})
	case declineInput:
		if c.state != StateWarning {
			return ErrSessionNotWarning
		}
		c.expire(ReasonDeclined)
	case stopInput:
		if c.state != StateInactive {
			c.recorder.Record(SecurityEvent{Type: EventManualLogout, Subject: c.user.Email, Success: true})
		}
		c.deactivate()
	case setTimeoutInput:
		c.total, c.lead = m.total, m.lead
		logSessionEvent("SESSION_TIMEOUT_SET", fmt.Sprintf("total=%v lead=%v", m.total, m.lead))
		switch c.state {
		case StateActive:
			c.startTimers()
		case StateWarning:
			// The running pair was armed for the old timeout; start over.
			c.lastActivity = c.clock.Now()
			c.state = StateActive
			c.startTimers()
			c.emit(SessionEvent{Kind: EventKindExtended})
		}
	case timerFired:
		c.onTimer(m)
	case signOutDone:
		c.onSignOutDone(m)
	}
	return nil
}

func (c *SessionController) onAuthChanged(st AuthState) {
	if st.SignedIn() {
		if c.state == StateActive || c.state == StateWarning {
			c.user = st
			return
		}
		c.stopNavigate()
		c.user = st
		c.state = StateActive
		c.lastActivity = c.clock.Now()
		c.startTimers()
		c.recorder.Record(SecurityEvent{Type: EventSessionStarted, Subject: st.Email, Success: true})
		logSessionEvent("SESSION_STARTED", "user="+util.MaskEmail(st.Email))
		c.emit(SessionEvent{Kind: EventKindStarted})
		return
	}

	switch c.state {
	case StateActive, StateWarning:
		c.recorder.Record(SecurityEvent{Type: EventSessionEnded, Subject: c.user.Email, Success: true})
		c.deactivate()
	case StateExpired:
		// Sign-out echo from the provider; navigation is still pending.
	}
}

func (c *SessionController) onTimer(m timerFired) {
	if m.gen != c.gen {
		return
	}
	switch m.kind {
	case timerWarning:
		if c.state != StateActive {
			return
		}
		c.warningTimer = nil
		c.state = StateWarning
		logSessionEvent("SESSION_WARNING", fmt.Sprintf("expires_in=%v", c.lead))
		c.emit(SessionEvent{Kind: EventKindWarning, Remaining: c.lead})
	case timerExpire:
		if c.state != StateActive && c.state != StateWarning {
			return
		}
		c.expireTimer = nil
		c.expire(ReasonNoActivity)
	case timerNavigate:
		if c.state != StateExpired {
			return
		}
		c.navTimer = nil
		c.navigateLogin()
	}
}

// expire moves to Expired and starts the asynchronous sign-out.
func (c *SessionController) expire(reason string) {
	c.cancelTimers()
	c.state = StateExpired
	gen := c.gen

	c.recorder.Record(SecurityEvent{
		Type:    EventAutoLogout,
		Subject: c.user.Email,
		Success: true,
		Details: map[string]string{"reason": reason},
	})
	logSessionEvent("SESSION_EXPIRED", "reason="+reason)
	c.emit(SessionEvent{Kind: EventKindExpired, Reason: reason})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		err := c.auth.SignOut(ctx)
		c.send(signOutDone{err: err, gen: gen})
	}()
}

func (c *SessionController) onSignOutDone(m signOutDone) {
	if m.gen != c.gen || c.state != StateExpired {
		return
	}
	reason := "Session expired"
	if m.err != nil {
		// Fail toward the login screen, never back into a live session.
		logSessionEvent("AUTO_LOGOUT_SIGNOUT_FAILED", fmt.Sprintf("err=%v", m.err))
		c.emit(SessionEvent{Kind: EventKindSignedOut, Err: m.err})
		c.navigateLogin()
		return
	}

	if c.toaster != nil {
		c.toaster.ShowWarningFor(reason+". You have been signed out.", c.countdown)
	}
	gen := c.gen
	c.navTimer = c.clock.AfterFunc(c.countdown, func() {
		c.send(timerFired{kind: timerNavigate, gen: gen})
	})
	c.emit(SessionEvent{Kind: EventKindSignedOut, Remaining: c.countdown, Reason: reason})
}

func (c *SessionController) navigateLogin() {
	c.stopNavigate()
	c.deactivate()
	c.emit(SessionEvent{Kind: EventKindNavigateLogin})
}

// deactivate cancels everything and returns to Inactive.
func (c *SessionController) deactivate() {
	wasActive := c.state != StateInactive
	c.cancelTimers()
	c.state = StateInactive
	c.user = AuthState{}
	if wasActive {
		logSessionEvent("SESSION_STOPPED", "")
		c.emit(SessionEvent{Kind: EventKindStopped})
	}
}

// startTimers cancels the current pair and schedules a fresh one.
func (c *SessionController) startTimers() {
	c.cancelTimers()
	gen := c.gen

	warnAfter := c.total - c.lead
	c.warningTimer = c.clock.AfterFunc(warnAfter, func() {
		c.send(timerFired{kind: timerWarning, gen: gen})
	})
	c.expireTimer = c.clock.AfterFunc(c.total, func() {
		c.send(timerFired{kind: timerExpire, gen: gen})
	})
}

// cancelTimers stops both timers and invalidates any fire already queued.
func (c *SessionController) cancelTimers() {
	c.gen++
	if c.warningTimer != nil {
		c.warningTimer.Stop()
		c.warningTimer = nil
	}
	if c.expireTimer != nil {
		c.expireTimer.Stop()
		c.expireTimer = nil
	}
}

func (c *SessionController) stopNavigate() {
	if c.navTimer != nil {
		c.navTimer.Stop()
		c.navTimer = nil
	}
}

// emit queues ev; queued events go out after the snapshot is published.
func (c *SessionController) emit(ev SessionEvent) {
	if ev.At.IsZero() {
		ev.At = c.clock.Now()
	}
	c.outbox = append(c.outbox, ev)
}

func (c *SessionController) flush() {
	for _, ev := range c.outbox {
		select {
		case c.events <- ev:
		default:
			logSessionEvent("SESSION_EVENT_DROPPED", "kind="+ev.Kind.String())
		}
	}
	c.outbox = c.outbox[:0]
}

func (c *SessionController) publish() {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	c.publishLocked()
}

func (c *SessionController) publishLocked() {
	active := c.state == StateActive || c.state == StateWarning
	c.snap = SessionStatus{
		IsActive:       active,
		State:          c.state,
		LastActivityAt: c.lastActivity,
		TotalTimeout:   c.total,
		WarningLead:    c.lead,
		User:           c.user,
	}
}

func logSessionEvent(eventType, details string) {
	log.Printf("%s | %s | %s", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"), eventType, details)
}
