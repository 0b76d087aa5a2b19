// Package chatlog records the bot's dialogue as NDJSON, one file per
// chat plus an optional global stream. Writes go through a buffered
// queue drained by a single goroutine so logging never blocks message
// handling; when the queue is full events are dropped and counted.
package chatlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Direction tags an event as received from or sent to the user.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Event is one logged dialogue entry.
type Event struct {
	Timestamp time.Time `json:"ts"`
	ChatID    int64     `json:"chat_id"`
	Direction string    `json:"direction"`
	Kind      string    `json:"kind"`
	Stage     string    `json:"stage,omitempty"`
	Text      string    `json:"text,omitempty"`
}

// Config controls the dialogue log.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Logger is the async NDJSON writer. A nil *Logger is a valid no-op.
type Logger struct {
	cfg     Config
	queue   chan Event
	done    chan struct{}
	logger  *slog.Logger
	dropped atomic.Int64

	closeOnce sync.Once
}

// New creates the logger and starts its writer goroutine. Returns nil
// (no-op) when disabled.
func New(cfg Config, logger *slog.Logger) (*Logger, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chatlog dir: %w", err)
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o755); err != nil {
			return nil, fmt.Errorf("create global chatlog dir: %w", err)
		}
	}

	l := &Logger{
		cfg:    cfg,
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go l.drain()
	return l, nil
}

// Log enqueues an event. Safe to call on a nil logger. Never blocks.
func (l *Logger) Log(ev Event) {
	if l == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	select {
	case l.queue <- ev:
	default:
		if l.dropped.Add(1)%100 == 1 {
			l.logger.Warn("chatlog queue full, dropping events", "dropped_total", l.dropped.Load())
		}
	}
}

// Close stops the writer after flushing queued events. Safe on nil.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.closeOnce.Do(func() {
		close(l.queue)
		<-l.done
	})
	return nil
}

func (l *Logger) drain() {
	defer close(l.done)
	for ev := range l.queue {
		l.write(ev)
	}
}

func (l *Logger) write(ev Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		l.logger.Error("chatlog marshal failed", "error", err)
		return
	}
	line = append(line, '\n')

	path := filepath.Join(l.cfg.Dir, strconv.FormatInt(ev.ChatID, 10)+".ndjson")
	if err := appendFile(path, line); err != nil {
		l.logger.Error("chatlog write failed", "path", path, "error", err)
	}
	if l.cfg.GlobalEnabled {
		if err := appendFile(l.cfg.GlobalPath, line); err != nil {
			l.logger.Error("chatlog global write failed", "path", l.cfg.GlobalPath, "error", err)
		}
	}
}

func appendFile(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
