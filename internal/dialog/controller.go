package dialog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"review-bot/internal/identifier"
	"review-bot/internal/storage"
)

var ErrStaleSession = errors.New("no dialog tracked for session")

// Config tunes the controller. Zero values fall back to defaults.
type Config struct {
	Cooldown       time.Duration
	ResetDelay     time.Duration
	ExcerptLimit   int
	SupportContact string
}

const defaultResetDelay = 3 * time.Second

// AfterFunc schedules f after d and returns a function that cancels it.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

type pendingReset struct {
	generation uint64
	stop       func() bool
}

// Controller drives the review dialog of every chat session.
type Controller struct {
	store     storage.Store
	transport Transport
	msgs      Messages
	cfg       Config

	sessions   *Sessions
	dispatcher *Dispatcher

	now       func() time.Time
	afterFunc AfterFunc

	resetMu    sync.Mutex
	resets     map[int64]pendingReset
	closed     bool
	generation atomic.Uint64
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock sets the clock stamping new reviews.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithAfterFunc replaces the timer used for delayed returns to the menu.
func WithAfterFunc(f AfterFunc) Option {
	return func(c *Controller) { c.afterFunc = f }
}

func NewController(store storage.Store, transport Transport, msgs Messages, cfg Config, opts ...Option) *Controller {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = storage.DefaultCooldown
	}
	if cfg.ResetDelay <= 0 {
		cfg.ResetDelay = defaultResetDelay
	}
	if cfg.ExcerptLimit <= 0 {
		cfg.ExcerptLimit = storage.DefaultExcerptLimit
	}
	c := &Controller{
		store:     store,
		transport: transport,
		msgs:      msgs,
		cfg:       cfg,
		sessions:  NewSessions(),
		now:       func() time.Time { return time.Now().UTC() },
		afterFunc: realAfterFunc,
		resets:    make(map[int64]pendingReset),
	}
	for _, o := range opts {
		o(c)
	}
	c.dispatcher = NewDispatcher(c.handle)
	return c
}

// Submit hands an inbound event to the actor of its session.
func (c *Controller) Submit(ctx context.Context, ev Event) {
	c.dispatcher.Submit(ctx, ev)
}

// Wait blocks until all queued events have been handled.
func (c *Controller) Wait() {
	c.dispatcher.Wait()
}

// Close cancels pending menu resets and waits for in-flight events. Events
// handled after Close schedule no further resets.
func (c *Controller) Close() {
	c.resetMu.Lock()
	c.closed = true
	for id, p := range c.resets {
		p.stop()
		delete(c.resets, id)
	}
	c.resetMu.Unlock()
	c.dispatcher.Wait()
}

// Sessions exposes the live dialog table.
func (c *Controller) Sessions() *Sessions { return c.sessions }

// ShowMainMenu ends any dialog of sessionID and sends the main menu.
func (c *Controller) ShowMainMenu(ctx context.Context, sessionID int64) {
	c.sessions.Delete(sessionID)
	c.cancelReset(sessionID)
	c.send(ctx, Outbound{SessionID: sessionID, Text: c.msgs.MainMenu, Menu: c.msgs.menuRows()})
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case Command:
		c.onCommand(ctx, e)
	case Text:
		c.onText(ctx, e)
	case Action:
		c.onAction(ctx, e)
	case deferredReset:
		c.onDeferredReset(ctx, e)
	default:
		log.Printf("ignoring unsupported event %T", ev)
	}
}

func (c *Controller) onCommand(ctx context.Context, e Command) {
	if e.Name == CommandStart {
		c.ShowMainMenu(ctx, e.SessionID)
	}
}

func (c *Controller) onText(ctx context.Context, e Text) {
	body := strings.TrimSpace(e.Body)
	if body == "" || strings.HasPrefix(body, "/") {
		return
	}
	id := e.SessionID
	sess, _ := c.sessions.Get(id)

	switch sess.Step {
	case StepIdle:
		switch body {
		case c.msgs.MenuSearch:
			c.startIdentifier(ctx, id, PurposeSearch, TriggerMenuSearch, c.msgs.SearchPrompt)
		case c.msgs.MenuReview:
			c.startIdentifier(ctx, id, PurposeReview, TriggerMenuReview, c.msgs.ReviewPrompt)
		case c.msgs.MenuSupport:
			c.send(ctx, Outbound{SessionID: id, Text: fmt.Sprintf(c.msgs.Support, c.cfg.SupportContact)})
		}
	case StepAwaitingIdentifier:
		if !identifier.IsValid(body) {
			c.send(ctx, Outbound{SessionID: id, Text: c.msgs.InvalidIdentifier})
			return
		}
		if sess.Purpose == PurposeSearch {
			c.search(ctx, id, sess, identifier.Normalize(body))
			return
		}
		c.collectIdentifier(ctx, e, sess, identifier.Normalize(body))
	case StepAwaitingComment:
		c.collectComment(ctx, id, sess, TriggerComment, body)
	default:
		c.reject(ctx, id, sess, TriggerText)
	}
}

func (c *Controller) onAction(ctx context.Context, e Action) {
	id := e.SessionID
	a := parseAction(e.Token)
	if a.kind == actionUnknown {
		log.Printf("ignoring unknown action %q from session %d", e.Token, id)
		return
	}
	if a.kind == actionCancel {
		c.cancel(ctx, id)
		return
	}

	if a.kind == actionConfirm {
		if !a.valid || a.sessionID != id {
			c.stale(ctx, id, e.Token)
			return
		}
		sess, ok := c.sessions.Get(a.sessionID)
		if !ok {
			c.stale(ctx, id, e.Token)
			return
		}
		c.confirm(ctx, id, sess)
		return
	}

	sess, ok := c.sessions.Get(id)
	if !ok || sess.Identifier == "" || !a.valid {
		c.send(ctx, Outbound{SessionID: id, Text: c.msgs.SomethingWrong})
		return
	}
	switch a.kind {
	case actionRating:
		c.collectRating(ctx, id, sess, a.rating)
	case actionSkip:
		c.collectComment(ctx, id, sess, TriggerSkip, "")
	}
}

func (c *Controller) startIdentifier(ctx context.Context, id int64, p Purpose, t Trigger, prompt string) {
	next, err := Next(StepIdle, t)
	if err != nil {
		c.reject(ctx, id, Session{Step: StepIdle}, t)
		return
	}
	c.transition(id, Session{Step: next, Purpose: p})
	c.send(ctx, Outbound{SessionID: id, Text: prompt, RemoveKeyboard: true})
}

func (c *Controller) collectIdentifier(ctx context.Context, e Text, sess Session, key string) {
	next, err := Next(sess.Step, TriggerReviewIdentifier)
	if err != nil {
		c.reject(ctx, e.SessionID, sess, TriggerReviewIdentifier)
		return
	}
	c.transition(e.SessionID, Session{
		Step:        next,
		Purpose:     PurposeReview,
		Identifier:  key,
		SubmitterID: e.SubmitterID,
	})

	var rows [][]Button
	var row []Button
	for n := 1; n <= 5; n++ {
		row = append(row, Button{Text: fmt.Sprintf(c.msgs.RatingButton, n), Token: RatingToken(n)})
		if len(row) == 2 || n == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	c.send(ctx, Outbound{SessionID: e.SessionID, Text: c.msgs.RatingPrompt, Inline: rows})
}

func (c *Controller) collectRating(ctx context.Context, id int64, sess Session, rating int) {
	next, err := Next(sess.Step, TriggerRating)
	if err != nil {
		c.reject(ctx, id, sess, TriggerRating)
		return
	}
	sess.Step = next
	sess.Rating = rating
	c.transition(id, sess)
	c.send(ctx, Outbound{
		SessionID: id,
		Text:      fmt.Sprintf(c.msgs.RatingChosen, rating),
		Inline:    [][]Button{{{Text: c.msgs.SkipButton, Token: SkipToken()}}},
	})
}

func (c *Controller) collectComment(ctx context.Context, id int64, sess Session, t Trigger, comment string) {
	next, err := Next(sess.Step, t)
	if err != nil {
		c.reject(ctx, id, sess, t)
		return
	}
	sess.Step = next
	sess.Comment = comment
	c.transition(id, sess)

	text := fmt.Sprintf(c.msgs.ConfirmNoComment, sess.Rating)
	if comment != "" {
		text = fmt.Sprintf(c.msgs.ConfirmWithComment, sess.Rating, comment)
	}
	c.send(ctx, Outbound{
		SessionID: id,
		Text:      text,
		Inline: [][]Button{
			{{Text: c.msgs.ConfirmButton, Token: ConfirmToken(id)}},
			{{Text: c.msgs.CancelButton, Token: CancelToken()}},
		},
	})
}

func (c *Controller) confirm(ctx context.Context, id int64, sess Session) {
	next, err := Next(sess.Step, TriggerConfirm)
	if err != nil {
		c.reject(ctx, id, sess, TriggerConfirm)
		return
	}

	rev := storage.Review{
		Identifier:  sess.Identifier,
		Comment:     sess.Comment,
		SubmitterID: sess.SubmitterID,
		CreatedAt:   c.now(),
	}
	if sess.Rating > 0 {
		rev.Rating = storage.IntRating(sess.Rating)
	}
	saved, err := c.store.Submit(ctx, rev, c.cfg.Cooldown)
	if err != nil {
		// The dialog stays at confirmation so the user can press confirm again.
		log.Printf("❌ failed to save review for session %d: %v", id, err)
		c.send(ctx, Outbound{SessionID: id, Text: c.msgs.SaveFailed})
		return
	}

	c.transition(id, Session{Step: next})
	if !saved {
		log.Printf("cooldown blocked submission by %d for %s", sess.SubmitterID, sess.Identifier)
		c.send(ctx, Outbound{SessionID: id, Text: c.msgs.Cooldown})
	} else {
		log.Printf("✅ saved review for %s by %d (rating=%d)", sess.Identifier, sess.SubmitterID, sess.Rating)
		c.send(ctx, Outbound{SessionID: id, Text: c.msgs.Saved})
	}
	c.scheduleReset(id)
}

func (c *Controller) cancel(ctx context.Context, id int64) {
	sess, _ := c.sessions.Get(id)
	if _, err := Next(sess.Step, TriggerCancel); err != nil {
		c.reject(ctx, id, sess, TriggerCancel)
		return
	}
	c.transition(id, Session{Step: StepIdle})
	c.send(ctx, Outbound{SessionID: id, Text: c.msgs.Cancelled})
	c.send(ctx, Outbound{SessionID: id, Text: c.msgs.MainMenu, Menu: c.msgs.menuRows()})
}

// search runs a lookup for key and reports statistics. On failure the dialog
// keeps waiting for an identifier so the user can try again.
func (c *Controller) search(ctx context.Context, id int64, sess Session, key string) {
	next, err := Next(sess.Step, TriggerSearchIdentifier)
	if err != nil {
		c.reject(ctx, id, sess, TriggerSearchIdentifier)
		return
	}
	records, err := c.store.FindByIdentifier(ctx, key)
	if err != nil {
		log.Printf("❌ failed to load reviews for %s (session %d): %v", key, id, err)
		c.send(ctx, Outbound{SessionID: id, Text: c.msgs.LookupFailed})
		return
	}
	c.transition(id, Session{Step: next})
	c.send(ctx, Outbound{SessionID: id, Text: c.renderSummary(storage.Summarize(records, c.cfg.ExcerptLimit))})
	c.scheduleReset(id)
}

func (c *Controller) renderSummary(s storage.Summary) string {
	if s.Total == 0 {
		return c.msgs.NotFound
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf(c.msgs.Stats, s.Average, s.Total))
	if len(s.Excerpts) > 0 {
		b.WriteString(c.msgs.ExcerptsHeader)
		for _, ex := range s.Excerpts {
			b.WriteString(fmt.Sprintf(c.msgs.Excerpt, ex))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Controller) stale(ctx context.Context, id int64, token string) {
	log.Printf("⚠️ session %d: %v (token %q)", id, ErrStaleSession, token)
	c.send(ctx, Outbound{SessionID: id, Text: c.msgs.StartOver})
}

func (c *Controller) reject(ctx context.Context, id int64, sess Session, t Trigger) {
	log.Printf("⚠️ session %d: %v: %s on %s", id, ErrInvalidTransition, t, sess.Step)
	c.send(ctx, Outbound{SessionID: id, Text: c.msgs.SomethingWrong})
}

// transition stores the new state of id. Moving on cancels a pending return
// to the menu so it cannot clobber the new dialog.
func (c *Controller) transition(id int64, sess Session) {
	c.cancelReset(id)
	c.sessions.Put(id, sess)
}

func (c *Controller) scheduleReset(id int64) {
	c.resetMu.Lock()
	defer c.resetMu.Unlock()
	if c.closed {
		return
	}
	if prev, ok := c.resets[id]; ok {
		prev.stop()
	}
	gen := c.generation.Add(1)
	stop := c.afterFunc(c.cfg.ResetDelay, func() { c.postReset(id, gen) })
	c.resets[id] = pendingReset{generation: gen, stop: stop}
}

// postReset runs on the timer goroutine and hands the reset to the session's
// mailbox unless the controller has been closed.
func (c *Controller) postReset(id int64, gen uint64) {
	c.resetMu.Lock()
	defer c.resetMu.Unlock()
	if c.closed {
		return
	}
	c.dispatcher.Submit(context.Background(), deferredReset{Envelope: Envelope{SessionID: id}, generation: gen})
}

func (c *Controller) cancelReset(id int64) {
	c.resetMu.Lock()
	defer c.resetMu.Unlock()
	if p, ok := c.resets[id]; ok {
		p.stop()
		delete(c.resets, id)
	}
}

func (c *Controller) onDeferredReset(ctx context.Context, e deferredReset) {
	c.resetMu.Lock()
	p, ok := c.resets[e.SessionID]
	if !ok || p.generation != e.generation {
		c.resetMu.Unlock()
		return
	}
	delete(c.resets, e.SessionID)
	c.resetMu.Unlock()

	if _, live := c.sessions.Get(e.SessionID); live {
		return
	}
	c.send(ctx, Outbound{SessionID: e.SessionID, Text: c.msgs.MainMenu, Menu: c.msgs.menuRows()})
}

func (c *Controller) send(ctx context.Context, out Outbound) {
	if err := c.transport.Send(ctx, out); err != nil {
		log.Printf("failed to send message to %d: %v", out.SessionID, err)
	}
}
