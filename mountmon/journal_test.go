package mountmon

import (
	"reflect"
	"sync"
	"testing"
)

// mockJournal is an in-memory store of events, primarily used for testing.
// A zero-value instance is a valid instance.
type mockJournal struct {
	mutex    sync.Mutex
	journals []Event
}

var _ Journaler = (*mockJournal)(nil)

// Write appends an event into the internal store.
func (m *mockJournal) Write(ev Event) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.journals = append(m.journals, ev)
	return nil
}

// Journals returns a copy of the event slice.
func (m *mockJournal) Journals() []Event {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]Event(nil), m.journals...)
}

// Count returns how many stored events have the given type.
func (m *mockJournal) Count(eventType string) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var n int
	for _, ev := range m.journals {
		if ev.Type() == eventType {
			n++
		}
	}
	return n
}

// Verify checks that the given events appear in the store in order,
// possibly with other events interleaved. If strict is true, the store must
// match exactly. The events left over after matching are returned.
func (m *mockJournal) Verify(t *testing.T, strict bool, journals []Event) []Event {
	t.Helper()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if strict && len(journals) != len(m.journals) {
		t.Errorf("mismatch journal length, got %d, expected %d", len(m.journals), len(journals))
		return nil
	}

	remaining := m.journals

	for _, expect := range journals {
		found := false

		for len(remaining) > 0 {
			got := remaining[0]
			remaining = remaining[1:]

			if reflect.DeepEqual(got, expect) {
				found = true
				break
			}

			if strict {
				t.Errorf("unexpected journal event %#v, expected %#v", got, expect)
				return nil
			}
		}

		if !found {
			t.Errorf("missing journal event %#v", expect)
			return nil
		}
	}

	return remaining
}
