package dialog

import "context"

// Button is a selectable action attached to an outbound message.
type Button struct {
	Text  string
	Token string
}

// Outbound is a message for one session.
// Inline buttons travel with the message; Menu replaces the persistent
// keyboard with the given rows; RemoveKeyboard hides it.
type Outbound struct {
	SessionID      int64
	Text           string
	Inline         [][]Button
	Menu           [][]string
	RemoveKeyboard bool
}

// Transport delivers messages to sessions. Delivery guarantees belong to the
// implementation; the controller only logs failures.
type Transport interface {
	Send(ctx context.Context, out Outbound) error
}
