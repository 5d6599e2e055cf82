package dialog

import (
	"strconv"
	"strings"
)

// Envelope identifies where an event comes from.
type Envelope struct {
	SessionID   int64
	SubmitterID int64
}

// Event is an inbound event: Text, Action or Command.
type Event interface {
	Source() Envelope
	isEvent()
}

// Text is free text typed by the user.
type Text struct {
	Envelope
	Body string
}

// Action is a button press carrying an opaque token.
type Action struct {
	Envelope
	Token string
}

// Command is a command addressed to the bot, without its marker.
type Command struct {
	Envelope
	Name string
}

// deferredReset is posted to a session's own mailbox when its delayed
// return to the main menu is due.
type deferredReset struct {
	Envelope
	generation uint64
}

func (e Envelope) Source() Envelope { return e }

func (Text) isEvent()          {}
func (Action) isEvent()        {}
func (Command) isEvent()       {}
func (deferredReset) isEvent() {}

const (
	ratingPrefix  = "rating_"
	confirmPrefix = "confirm_review:"
	skipToken     = "skip_review"
	cancelToken   = "cancel_review"

	CommandStart = "start"
)

// RatingToken returns the action token of the n-star button.
func RatingToken(n int) string { return ratingPrefix + strconv.Itoa(n) }

// ConfirmToken returns the action token confirming the review of sessionID.
func ConfirmToken(sessionID int64) string {
	return confirmPrefix + strconv.FormatInt(sessionID, 10)
}

func SkipToken() string   { return skipToken }
func CancelToken() string { return cancelToken }

type actionKind int

const (
	actionUnknown actionKind = iota
	actionRating
	actionSkip
	actionConfirm
	actionCancel
)

type parsedAction struct {
	kind      actionKind
	rating    int
	sessionID int64
	valid     bool
}

func parseAction(token string) parsedAction {
	switch {
	case token == skipToken:
		return parsedAction{kind: actionSkip, valid: true}
	case token == cancelToken:
		return parsedAction{kind: actionCancel, valid: true}
	case strings.HasPrefix(token, ratingPrefix):
		n, err := strconv.Atoi(strings.TrimPrefix(token, ratingPrefix))
		return parsedAction{kind: actionRating, rating: n, valid: err == nil && n >= 1 && n <= 5}
	case strings.HasPrefix(token, confirmPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(token, confirmPrefix), 10, 64)
		return parsedAction{kind: actionConfirm, sessionID: id, valid: err == nil}
	default:
		return parsedAction{kind: actionUnknown}
	}
}
