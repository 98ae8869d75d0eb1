package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ObjectDetails is the standard result of every mutating command.
type ObjectDetails struct {
	// Sequence is the aggregate version after the command's events.
	Sequence uint64

	// EventDate is the creation time of the command's last event.
	EventDate time.Time

	// ResourceOwner is the organisation (or instance) owning the aggregate.
	ResourceOwner string
}

var foldCaser = cases.Fold()

// NormalizeIdentifier lowercases and trims an identifying value (username,
// domain) with full Unicode case folding so uniqueness is checked on the
// canonical form.
func NormalizeIdentifier(s string) string {
	return foldCaser.String(strings.TrimSpace(s))
}

// TitleName renders a display fallback for names, e.g. "acme corp" ->
// "Acme Corp".
func TitleName(s string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}
