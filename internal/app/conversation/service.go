// Package conversation is the per-user chat state machine. Every inbound
// message goes through Service.HandleMessage, which reads the user's state
// once and branches on it.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PabloGalante/chatplanner/internal/app/dispatch"
	"github.com/PabloGalante/chatplanner/internal/domain"
	"github.com/PabloGalante/chatplanner/internal/observability"
)

// Parser turns a message into a finished request.
type Parser interface {
	Parse(ctx context.Context, q domain.Query) (*domain.Request, error)
}

// Dispatcher delivers a finished request.
type Dispatcher interface {
	Dispatch(ctx context.Context, user *domain.User, req *domain.Request) dispatch.Outcome
}

type Options struct {
	// Messages whose rune length is at most MinTextLen are not parsed.
	MinTextLen int
	// When false, registration ends after the calendar id.
	TaskCredentialRequired bool
	// Bounds each credential check against a backend; zero means unbounded.
	ValidateTimeout time.Duration
}

type Service struct {
	users      domain.UserStore
	sessions   domain.SessionStore
	calendar   domain.CalendarService
	tasks      domain.TaskService
	parser     Parser
	dispatcher Dispatcher
	opts       Options

	locks *keyLock
	now   func() time.Time
}

func NewService(
	users domain.UserStore,
	sessions domain.SessionStore,
	calendar domain.CalendarService,
	tasks domain.TaskService,
	parser Parser,
	dispatcher Dispatcher,
	opts Options,
) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		calendar:   calendar,
		tasks:      tasks,
		parser:     parser,
		dispatcher: dispatcher,
		opts:       opts,
		locks:      newKeyLock(),
		now:        time.Now,
	}
}

type Incoming struct {
	ClientID domain.UserID
	Text     string
	At       time.Time // zero means now
}

type Reply struct {
	Text  string
	State domain.ConversationState
	Menu  []string
}

// turn is the state loaded for one message.
type turn struct {
	in      Incoming
	text    string
	session *domain.Session
	user    *domain.User
}

// HandleMessage advances the conversation of in.ClientID by one message.
// Messages of the same user are handled one at a time. Failures while
// parsing or dispatching never escape: they become a retry prompt and the
// state is reset.
func (s *Service) HandleMessage(ctx context.Context, in Incoming) (reply *Reply, err error) {
	if in.ClientID == "" {
		return nil, fmt.Errorf("client id is required")
	}

	unlock := s.locks.Lock(in.ClientID)
	defer unlock()

	log := observability.WithFields(ctx, "client_id", in.ClientID)

	t, err := s.load(ctx, in)
	if err != nil {
		log.Errorw("failed to load conversation", "error", err)
		return nil, err
	}
	log = log.With("state", t.session.State)
	log.Debugw("handling message", "text_len", utf8.RuneCountInString(t.text))

	defer func() {
		if r := recover(); r != nil {
			log.Errorw("panic while handling message", "panic", r, "stack", string(debug.Stack()))
			reply, err = s.reset(ctx, t), nil
		}
	}()

	reply, err = s.step(ctx, t)
	if err != nil {
		log.Errorw("message handling failed", "error", err)
		return s.reset(ctx, t), nil
	}

	t.session.State = reply.State
	t.session.UpdatedAt = s.now()
	if err := s.sessions.SaveSession(ctx, t.session); err != nil {
		log.Errorw("failed to save session", "error", err)
		return nil, fmt.Errorf("save session: %w", err)
	}

	log.Infow("message handled", "next_state", reply.State)
	return reply, nil
}

// State returns the stored state of id, Unregistered for unknown users.
func (s *Service) State(ctx context.Context, id domain.UserID) (domain.ConversationState, error) {
	sess, err := s.sessions.GetSession(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.StateUnregistered, nil
	}
	if err != nil {
		return "", err
	}
	return sess.State, nil
}

func (s *Service) load(ctx context.Context, in Incoming) (*turn, error) {
	t := &turn{in: in, text: strings.TrimSpace(in.Text)}

	sess, err := s.sessions.GetSession(ctx, in.ClientID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		sess = &domain.Session{UserID: in.ClientID, State: domain.StateUnregistered}
	case err != nil:
		return nil, fmt.Errorf("get session: %w", err)
	}
	t.session = sess

	user, err := s.users.GetUser(ctx, in.ClientID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		user = nil
	case err != nil:
		return nil, fmt.Errorf("get user: %w", err)
	}
	t.user = user

	// the session and user records can disagree after a partial write
	switch {
	case user == nil && registeredOnly(sess.State):
		sess.State = domain.StateUnregistered
	case user != nil && sess.State == domain.StateUnregistered:
		sess.State = domain.StateIdle
	}
	return t, nil
}

func registeredOnly(st domain.ConversationState) bool {
	return st == domain.StateIdle || st.AwaitingText()
}

// step is the single dispatch point of the state machine.
func (s *Service) step(ctx context.Context, t *turn) (*Reply, error) {
	switch strings.ToLower(t.text) {
	case "/start":
		if t.user != nil {
			return s.idle(replyAlreadyRegistered), nil
		}
		t.session.PendingCalendarID = ""
		return &Reply{Text: replyGreeting, State: domain.StateAwaitingCalendarID}, nil
	case "/cancel":
		if t.user == nil {
			t.session.PendingCalendarID = ""
			return &Reply{Text: replyCancelled, State: domain.StateUnregistered}, nil
		}
		return s.idle(replyCancelled), nil
	case "/unregister":
		if err := s.users.DeleteUser(ctx, t.in.ClientID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("delete user: %w", err)
		}
		t.session.PendingCalendarID = ""
		return &Reply{Text: replyUnregistered, State: domain.StateUnregistered}, nil
	case "/menu":
		if t.user == nil {
			return &Reply{Text: replyAskCalendarID, State: domain.StateAwaitingCalendarID}, nil
		}
		return s.idle(replyMenu), nil
	}

	switch t.session.State {
	case domain.StateUnregistered, domain.StateAwaitingCalendarID:
		return s.acceptCalendarID(ctx, t)
	case domain.StateAwaitingTaskServiceToken:
		return s.acceptTaskToken(ctx, t)
	case domain.StateIdle:
		if r := s.menuSelection(t); r != nil {
			return r, nil
		}
		return s.freeText(ctx, t)
	case domain.StateAwaitingEventText, domain.StateAwaitingTaskText:
		return s.freeText(ctx, t)
	default:
		return nil, fmt.Errorf("unknown conversation state %q", t.session.State)
	}
}

func (s *Service) acceptCalendarID(ctx context.Context, t *turn) (*Reply, error) {
	if t.text == "" {
		return &Reply{Text: replyAskCalendarID, State: domain.StateAwaitingCalendarID}, nil
	}

	ok, err := s.validate(ctx, t.text, s.calendar.ValidateCredential)
	if errors.Is(err, context.DeadlineExceeded) {
		observability.LoggerFromContext(ctx).Warnw("calendar validation timed out", "client_id", t.in.ClientID)
		return &Reply{Text: replyValidationTimeout, State: domain.StateAwaitingCalendarID}, nil
	}
	if err != nil {
		observability.LoggerFromContext(ctx).Warnw("calendar validation failed", "client_id", t.in.ClientID, "error", err)
	}
	if !ok {
		return &Reply{Text: replyBadCalendarID, State: domain.StateAwaitingCalendarID}, nil
	}

	if s.opts.TaskCredentialRequired {
		t.session.PendingCalendarID = t.text
		return &Reply{Text: replyAskTaskToken, State: domain.StateAwaitingTaskServiceToken}, nil
	}
	if err := s.register(ctx, t, t.text, ""); err != nil {
		return nil, err
	}
	return s.idle(replyRegistered), nil
}

func (s *Service) acceptTaskToken(ctx context.Context, t *turn) (*Reply, error) {
	if t.session.PendingCalendarID == "" {
		return &Reply{Text: replyAskCalendarID, State: domain.StateAwaitingCalendarID}, nil
	}
	if t.text == "" {
		return &Reply{Text: replyAskTaskToken, State: domain.StateAwaitingTaskServiceToken}, nil
	}

	ok, err := s.validate(ctx, t.text, s.tasks.ValidateCredential)
	if errors.Is(err, context.DeadlineExceeded) {
		observability.LoggerFromContext(ctx).Warnw("task credential validation timed out", "client_id", t.in.ClientID)
		return &Reply{Text: replyValidationTimeout, State: domain.StateAwaitingTaskServiceToken}, nil
	}
	if err != nil {
		observability.LoggerFromContext(ctx).Warnw("task credential validation failed", "client_id", t.in.ClientID, "error", err)
	}
	if !ok {
		return &Reply{Text: replyBadTaskToken, State: domain.StateAwaitingTaskServiceToken}, nil
	}

	if err := s.register(ctx, t, t.session.PendingCalendarID, t.text); err != nil {
		return nil, err
	}
	return s.idle(replyRegistered), nil
}

// validate runs one credential check bounded by ValidateTimeout. The caller
// stops waiting at the deadline even if the backend ignores ctx.
func (s *Service) validate(ctx context.Context, credential string, check func(context.Context, string) (bool, error)) (bool, error) {
	if s.opts.ValidateTimeout <= 0 {
		return check(ctx, credential)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.ValidateTimeout)
	defer cancel()

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := check(ctx, credential)
		done <- result{ok, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() != nil {
			return false, ctx.Err()
		}
		return r.ok, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (s *Service) register(ctx context.Context, t *turn, calendarID, taskToken string) error {
	now := s.now()
	u := &domain.User{
		ClientID:   t.in.ClientID,
		CalendarID: calendarID,
		TaskToken:  taskToken,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.users.SaveUser(ctx, u); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	t.user = u
	t.session.PendingCalendarID = ""
	observability.LoggerFromContext(ctx).Infow("user registered", "client_id", u.ClientID)
	return nil
}

func (s *Service) menuSelection(t *turn) *Reply {
	word := strings.ToLower(t.text)
	switch {
	case eventMenuWords[word]:
		return &Reply{Text: replyAskEventText, State: domain.StateAwaitingEventText}
	case taskMenuWords[word]:
		return &Reply{Text: replyAskTaskText, State: domain.StateAwaitingTaskText}
	}
	return nil
}

// freeText runs the pipeline and the dispatcher. It always ends in Idle,
// except for a too-short message, which keeps the current state.
func (s *Service) freeText(ctx context.Context, t *turn) (*Reply, error) {
	if utf8.RuneCountInString(t.text) <= s.opts.MinTextLen {
		return &Reply{Text: replyTooShort, State: t.session.State}, nil
	}

	at := t.in.At
	if at.IsZero() {
		at = s.now()
	}
	req, err := s.parser.Parse(ctx, domain.Query{
		ClientID:    t.in.ClientID,
		CurrentTime: at,
		Content:     t.text,
	})
	if errors.Is(err, domain.ErrUnclassified) {
		return s.idle(replyNotUnderstood), nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}

	out := s.dispatcher.Dispatch(ctx, t.user, req)
	return s.idle(outcomeText(out)), nil
}

func outcomeText(out dispatch.Outcome) string {
	event := out.Kind == domain.RequestEvent
	switch {
	case out.OK && event:
		return fmt.Sprintf(replyEventCreated, out.Item)
	case out.OK:
		return fmt.Sprintf(replyTaskCreated, out.Item)
	case event:
		return fmt.Sprintf(replyEventFailed, out.Reason)
	default:
		return fmt.Sprintf(replyTaskFailed, out.Reason)
	}
}

func (s *Service) idle(text string) *Reply {
	return &Reply{Text: text, State: domain.StateIdle, Menu: MenuItems}
}

// reset puts the user back into the safe state after a failure.
func (s *Service) reset(ctx context.Context, t *turn) *Reply {
	safe := domain.StateUnregistered
	if t.user != nil {
		safe = domain.StateIdle
	}
	t.session.State = safe
	t.session.PendingCalendarID = ""
	t.session.UpdatedAt = s.now()
	if err := s.sessions.SaveSession(ctx, t.session); err != nil {
		observability.LoggerFromContext(ctx).Errorw("failed to reset session", "client_id", t.in.ClientID, "error", err)
	}

	r := &Reply{Text: replyTryLater, State: safe}
	if t.user != nil {
		r.Menu = MenuItems
	}
	return r
}
