// Package history records an audit trail of rolls and target analyses.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/diceengine/internal/dice"
)

// Kind classifies an audit entry.
type Kind string

const (
	KindRoll     Kind = "roll"
	KindAnalysis Kind = "analysis"
)

// Valid reports whether k is a known entry kind.
func (k Kind) Valid() bool {
	return k == KindRoll || k == KindAnalysis
}

// ErrInvalidEntry is returned when an entry fails validation before storage.
var ErrInvalidEntry = errors.New("invalid history entry")

// Entry is one audited roll or analysis.
type Entry struct {
	ID         uuid.UUID
	Actor      string
	Kind       Kind
	Expression string
	// Summary is the rendered one-line outcome, e.g. "2d6+3 → (4 + 5) + 3 = 12".
	Summary string
	// Total is the rolled total for KindRoll and the probability in [0, 1]
	// for KindAnalysis.
	Total     float64
	CreatedAt time.Time
}

// Validate checks the fields every store requires.
//
// Postcondition: Returns nil or an error wrapping ErrInvalidEntry.
func (e Entry) Validate() error {
	if e.Actor == "" {
		return fmt.Errorf("%w: actor must not be empty", ErrInvalidEntry)
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEntry, e.Kind)
	}
	if e.Expression == "" {
		return fmt.Errorf("%w: expression must not be empty", ErrInvalidEntry)
	}
	return nil
}

// Store persists entries and lists the most recent ones per actor.
type Store interface {
	// Append stores e, assigning ID and CreatedAt when they are zero.
	Append(ctx context.Context, e Entry) (Entry, error)
	// Recent returns up to limit entries for actor, newest first.
	// A non-positive limit yields no entries.
	Recent(ctx context.Context, actor string, limit int) ([]Entry, error)
}

// RollEntry builds the audit entry for a completed roll.
func RollEntry(actor string, r dice.RollResult) Entry {
	return Entry{
		Actor:      actor,
		Kind:       KindRoll,
		Expression: r.Input,
		Summary:    r.String(),
		Total:      r.Total,
	}
}

// AnalysisEntry builds the audit entry for a completed target analysis.
func AnalysisEntry(actor string, a dice.TargetAnalysis) Entry {
	return Entry{
		Actor:      actor,
		Kind:       KindAnalysis,
		Expression: a.Input,
		Summary: fmt.Sprintf("%s %s %s: %s (%s)",
			a.Input, a.Comparator, dice.FormatNumber(a.Target), a.ProbabilityPercent, a.Method),
		Total: a.Probability,
	}
}

// Prepare validates e and fills in a fresh ID and the creation time when unset.
//
// Postcondition: the returned entry has a non-nil ID and non-zero CreatedAt.
func Prepare(e Entry, now time.Time) (Entry, error) {
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now.UTC()
	}
	return e, nil
}
