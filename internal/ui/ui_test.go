package ui

import (
	"strings"
	"testing"
	"time"

	"tyinc/internal/driver"
)

func TestPadRightCountsCells(t *testing.T) {
	if got := PadRight("ab", 4); got != "ab  " {
		t.Fatalf("PadRight(ab) = %q", got)
	}
	// wide runes take two cells
	if got := PadRight("型", 4); got != "型  " {
		t.Fatalf("PadRight(wide) = %q", got)
	}
	if got := PadRight("abcdef", 3); got != "abcdef" {
		t.Fatalf("PadRight truncated: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("impl<T> W<T>", 0); got != "impl<T> W<T>" {
		t.Fatalf("Truncate(0) = %q", got)
	}
	if got := Truncate("impl<T> W<T>", 8); got != "impl<..." {
		t.Fatalf("Truncate(8) = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("Truncate(10) = %q", got)
	}
}

func TestProgressModelFollowsBodies(t *testing.T) {
	events := make(chan driver.BodyEvent, 4)
	events <- driver.BodyEvent{Index: 0, Total: 2, Name: "main", Status: driver.BodyStarted}
	events <- driver.BodyEvent{Index: 0, Total: 2, Name: "main", Status: driver.BodyDone, Elapsed: time.Millisecond}
	events <- driver.BodyEvent{Index: 1, Total: 2, Name: "W::show", Status: driver.BodyDone, Diagnostics: 2}
	close(events)

	m := NewProgressModel("ws.toml", events).(*progressModel)
	for {
		msg := m.next()()
		if _, ok := msg.(doneMsg); ok {
			m.Update(msg)
			break
		}
		m.Update(msg)
	}
	if !m.done || m.finished != 2 || m.total != 2 {
		t.Fatalf("model = done %v finished %d total %d", m.done, m.finished, m.total)
	}
	view := m.View()
	for _, want := range []string{"done: ws.toml (2/2 bodies)", "main", "W::show", "2 errors", "ok"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}
