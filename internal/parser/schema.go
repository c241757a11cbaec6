package parser

import (
	"fmt"
	"strings"

	"github.com/starford/gitjournal/internal/apperr"
)

// Kind enumerates the fixed sections of a journal, in document order.
type Kind int

const (
	Why Kind = iota
	What
	Where
	Who
	When
	DetailLog

	numKinds = int(DetailLog) + 1
)

// Ownership says who is allowed to write a section body.
type Ownership int

const (
	// HumanOwned bodies are never written by automation.
	HumanOwned Ownership = iota
	// AutomationOwned bodies are regenerated on every update.
	AutomationOwned
	// AppendOnly bodies only ever grow at the end.
	AppendOnly
)

// String returns the lowercase ownership name used in API payloads.
func (o Ownership) String() string {
	switch o {
	case HumanOwned:
		return "human"
	case AutomationOwned:
		return "automation"
	case AppendOnly:
		return "append-only"
	}
	return fmt.Sprintf("Ownership(%d)", int(o))
}

var headings = [numKinds]string{
	Why:       "Why, current summary",
	What:      "What, aggregated",
	Where:     "Where, key areas",
	Who:       "Who",
	When:      "When",
	DetailLog: "Detailed log",
}

// Kinds returns every section kind in document order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// Heading returns the canonical heading text (without the "## " marker).
func (k Kind) Heading() string {
	if k < 0 || int(k) >= numKinds {
		return ""
	}
	return headings[k]
}

func (k Kind) String() string {
	switch k {
	case Why:
		return "why"
	case What:
		return "what"
	case Where:
		return "where"
	case Who:
		return "who"
	case When:
		return "when"
	case DetailLog:
		return "detailed_log"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Ownership returns the ownership tag of the section kind.
func (k Kind) Ownership() Ownership {
	switch k {
	case Who, When:
		return AutomationOwned
	case DetailLog:
		return AppendOnly
	}
	return HumanOwned
}

// ParseKind looks a section kind up by its short name ("why", "log") or
// its heading, case-insensitively.
func ParseKind(name string) (Kind, bool) {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "log") {
		return DetailLog, true
	}
	for _, k := range Kinds() {
		if strings.EqualFold(name, k.String()) {
			return k, true
		}
	}
	return kindForTitle(name)
}

// kindForTitle maps a level-2 heading title to its kind.
func kindForTitle(title string) (Kind, bool) {
	for i, h := range headings {
		if strings.EqualFold(title, h) {
			return Kind(i), true
		}
	}
	return 0, false
}

// SchemaError reports a journal whose headings do not follow the fixed schema.
type SchemaError struct {
	Heading string
	Line    int // 1-based; 0 when the heading is missing entirely
	Reason  string
}

func (e *SchemaError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("journal schema: %q at line %d: %s", e.Heading, e.Line, e.Reason)
	}
	return fmt.Sprintf("journal schema: %q: %s", e.Heading, e.Reason)
}

// Is lets errors.Is match apperr.ErrSchemaParse.
func (e *SchemaError) Is(target error) bool {
	return target == apperr.ErrSchemaParse
}
