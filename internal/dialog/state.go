package dialog

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid dialog transition")

// Step is the position of a session within the dialog.
type Step int

const (
	StepIdle Step = iota
	StepAwaitingIdentifier
	StepAwaitingRating
	StepAwaitingComment
	StepAwaitingConfirmation
)

func (s Step) String() string {
	switch s {
	case StepIdle:
		return "idle"
	case StepAwaitingIdentifier:
		return "awaiting_identifier"
	case StepAwaitingRating:
		return "awaiting_rating"
	case StepAwaitingComment:
		return "awaiting_optional_comment"
	case StepAwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Purpose tells what an identifier is being collected for.
type Purpose int

const (
	PurposeNone Purpose = iota
	PurposeSearch
	PurposeReview
)

func (p Purpose) String() string {
	switch p {
	case PurposeSearch:
		return "search"
	case PurposeReview:
		return "review"
	default:
		return "none"
	}
}

// Trigger is what an inbound event means for the state machine.
type Trigger int

const (
	TriggerMenuSearch Trigger = iota + 1
	TriggerMenuReview
	TriggerSearchIdentifier
	TriggerReviewIdentifier
	TriggerRating
	TriggerSkip
	TriggerComment
	TriggerConfirm
	TriggerCancel
	TriggerText
)

func (t Trigger) String() string {
	switch t {
	case TriggerMenuSearch:
		return "menu_search"
	case TriggerMenuReview:
		return "menu_review"
	case TriggerSearchIdentifier:
		return "search_identifier"
	case TriggerReviewIdentifier:
		return "review_identifier"
	case TriggerRating:
		return "rating"
	case TriggerSkip:
		return "skip"
	case TriggerComment:
		return "comment"
	case TriggerConfirm:
		return "confirm"
	case TriggerCancel:
		return "cancel"
	case TriggerText:
		return "text"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// transitions is the complete dialog table. Pairs that are not listed are
// rejected.
var transitions = map[Step]map[Trigger]Step{
	StepIdle: {
		TriggerMenuSearch: StepAwaitingIdentifier,
		TriggerMenuReview: StepAwaitingIdentifier,
		TriggerCancel:     StepIdle,
	},
	StepAwaitingIdentifier: {
		TriggerSearchIdentifier: StepIdle,
		TriggerReviewIdentifier: StepAwaitingRating,
		TriggerCancel:           StepIdle,
	},
	StepAwaitingRating: {
		TriggerRating: StepAwaitingComment,
		TriggerCancel: StepIdle,
	},
	StepAwaitingComment: {
		TriggerSkip:    StepAwaitingConfirmation,
		TriggerComment: StepAwaitingConfirmation,
		TriggerCancel:  StepIdle,
	},
	StepAwaitingConfirmation: {
		TriggerConfirm: StepIdle,
		TriggerCancel:  StepIdle,
	},
}

// Next returns the step reached from `from` on trigger t.
func Next(from Step, t Trigger) (Step, error) {
	if to, ok := transitions[from][t]; ok {
		return to, nil
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, from, t)
}

// Session is the in-progress dialog of one chat session.
type Session struct {
	Step        Step
	Purpose     Purpose
	Identifier  string
	Rating      int
	Comment     string
	SubmitterID int64
}
