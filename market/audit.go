package market

import (
	"fmt"
	"strconv"
	"strings"
)

// Event is one audit line. Events are the market's only output channel:
// mutating calls emit them for the audit trail and read-only calls return
// their results exclusively through them.
type Event struct {
	Key   string
	Value string
}

// Line renders the canonical "KEY:value" form.
func (e Event) Line() string { return e.Key + ":" + e.Value }

func ev(key string, value any) Event {
	switch v := value.(type) {
	case string:
		return Event{Key: key, Value: v}
	case fmt.Stringer:
		return Event{Key: key, Value: v.String()}
	default:
		return Event{Key: key, Value: fmt.Sprint(v)}
	}
}

func itoa(v uint64) string { return strconv.FormatUint(v, 10) }

// RenderEvents joins events into the newline-separated audit block.
func RenderEvents(events []Event) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, e.Line())
	}
	return strings.Join(lines, "\n")
}
