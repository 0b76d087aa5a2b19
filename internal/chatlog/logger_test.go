package chatlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLogWritesPerChatFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := New(Config{Enabled: true, Dir: dir}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Log(Event{ChatID: 42, Direction: DirectionInbound, Kind: "text", Stage: "collecting_interests", Text: "музеи"})
	l.Log(Event{ChatID: 42, Direction: DirectionOutbound, Kind: "text", Text: "Отлично!"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	events := readEvents(t, filepath.Join(dir, "42.ndjson"))
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Direction != DirectionInbound || events[0].Text != "музеи" {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[0].Timestamp.IsZero() {
		t.Fatal("timestamp not backfilled")
	}
	if events[1].Direction != DirectionOutbound {
		t.Fatalf("second event = %+v", events[1])
	}
}

func TestLogGlobalStream(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	global := filepath.Join(dir, "global.ndjson")
	l, err := New(Config{Enabled: true, Dir: dir, GlobalEnabled: true, GlobalPath: global}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	l.Log(Event{ChatID: 1, Direction: DirectionInbound, Kind: "text", Text: "a"})
	l.Log(Event{ChatID: 2, Direction: DirectionInbound, Kind: "location"})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := len(readEvents(t, global)); got != 2 {
		t.Fatalf("global stream has %d events, want 2", got)
	}
	if got := len(readEvents(t, filepath.Join(dir, "1.ndjson"))); got != 1 {
		t.Fatalf("chat 1 file has %d events, want 1", got)
	}
}

func TestDisabledLoggerIsNoOp(t *testing.T) {
	t.Parallel()

	l, err := New(Config{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l != nil {
		t.Fatal("disabled config should yield a nil logger")
	}

	// Nil receiver is safe.
	l.Log(Event{ChatID: 1})
	if err := l.Close(); err != nil {
		t.Fatalf("Close on nil: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	l, err := New(Config{Enabled: true, Dir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Log(Event{ChatID: 7, Direction: DirectionInbound, Kind: "text", Timestamp: time.Now()})
	if err := l.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func readEvents(t *testing.T, path string) []Event {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev Event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return events
}
