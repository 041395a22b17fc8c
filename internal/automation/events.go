package automation

import (
	"fmt"
	"strings"

	"nzql/internal/core"
)

// EventKind identifies what kind of scheduled event produced a transaction.
type EventKind string

const (
	KindSalary    EventKind = "SALARY"
	KindRecurring EventKind = "REC"
)

// EventKey identifies one scheduled event in one month. Its string form is
// what gets recorded in core.ProcessedEvents.
type EventKey struct {
	Month core.Month
	Kind  EventKind
	RefID string
}

func SalaryKey(m core.Month) EventKey {
	return EventKey{Month: m, Kind: KindSalary}
}

func RecurringKey(m core.Month, id string) EventKey {
	return EventKey{Month: m, Kind: KindRecurring, RefID: id}
}

// String renders "2026-03-SALARY" or "2026-03-REC-<id>".
func (k EventKey) String() string {
	if k.Kind == KindSalary {
		return fmt.Sprintf("%s-%s", k.Month, k.Kind)
	}
	return fmt.Sprintf("%s-%s-%s", k.Month, k.Kind, k.RefID)
}

// ParseEventKey reads a recorded key back into its parts.
func ParseEventKey(s string) (EventKey, error) {
	if len(s) < len(core.MonthLayout)+2 || s[len(core.MonthLayout)] != '-' {
		return EventKey{}, fmt.Errorf("malformed event key %q", s)
	}
	month, err := core.ParseMonth(s[:len(core.MonthLayout)])
	if err != nil {
		return EventKey{}, fmt.Errorf("event key %q: %w", s, err)
	}
	rest := s[len(core.MonthLayout)+1:]

	switch {
	case rest == string(KindSalary):
		return SalaryKey(month), nil
	case strings.HasPrefix(rest, string(KindRecurring)+"-"):
		id := strings.TrimPrefix(rest, string(KindRecurring)+"-")
		if id == "" {
			return EventKey{}, fmt.Errorf("event key %q: empty recurring id", s)
		}
		return RecurringKey(month, id), nil
	default:
		return EventKey{}, fmt.Errorf("event key %q: unknown kind", s)
	}
}
