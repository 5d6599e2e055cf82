package identifier

import (
	"regexp"
	"strings"
)

// Kind is the shape of an accepted identifier.
type Kind string

const (
	KindInvalid Kind = ""
	KindPlate   Kind = "plate"
	KindHandle  Kind = "handle"
	KindCode    Kind = "code"
)

var (
	platePattern  = regexp.MustCompile(`^[A-Z]{2}\d{4}[A-Z]{2}$`)
	handlePattern = regexp.MustCompile(`^@\w{5,}$`)
	codePattern   = regexp.MustCompile(`^\d{4}$`)
)

// Normalize canonicalizes user input into the key reviews are stored under.
// Four-digit codes are kept as-is; anything else is uppercased and loses its
// leading '@'. The sigil is stripped until none is left so that the result is
// a fixed point: Normalize(Normalize(s)) == Normalize(s).
func Normalize(input string) string {
	text := input
	for {
		text = strings.TrimSpace(text)
		if codePattern.MatchString(text) {
			return text
		}
		next := strings.TrimPrefix(strings.ToUpper(text), "@")
		if next == text {
			return text
		}
		text = next
	}
}

// IsValid reports whether text is a plate, a handle or a four-digit code.
func IsValid(text string) bool {
	return Classify(text) != KindInvalid
}

// Classify returns the shape of text, or KindInvalid.
func Classify(text string) Kind {
	switch {
	case platePattern.MatchString(strings.ToUpper(text)):
		return KindPlate
	case handlePattern.MatchString(text):
		return KindHandle
	case codePattern.MatchString(text):
		return KindCode
	default:
		return KindInvalid
	}
}

// ClassifyNormalized classifies an already normalized identifier, where
// handles have lost their sigil.
func ClassifyNormalized(id string) Kind {
	if k := Classify(id); k != KindInvalid {
		return k
	}
	if handlePattern.MatchString("@" + id) {
		return KindHandle
	}
	return KindInvalid
}
