// Package flow implements the per-session state machine: it decides for
// each inbound event which collaborator to invoke and which transition
// to make, absorbs events while a generation is in flight, and handles
// delivery of finished routes.
package flow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/chatlog"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/collect"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/domain"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/metrics"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/routegen"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/session"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/store"
)

// EventKind classifies inbound transport events.
type EventKind string

const (
	KindText     EventKind = "text"
	KindLocation EventKind = "location"
	KindCommand  EventKind = "command"
)

// Commands understood by the bot.
const (
	CommandStart  = "start"
	CommandCancel = "cancel"
)

// Event is one inbound message, already tagged with its chat id by the
// transport.
type Event struct {
	ChatID    int64
	Kind      EventKind
	Text      string
	Command   string
	Location  *domain.Location
	FirstName string
}

// Keyboard selects the reply-keyboard attached to an outbound message.
type Keyboard int

const (
	// KeyboardNone leaves the current keyboard untouched.
	KeyboardNone Keyboard = iota
	// KeyboardLocation shows the location-request button.
	KeyboardLocation
	// KeyboardRemove hides any custom keyboard.
	KeyboardRemove
)

// Sender is the outbound side of the transport collaborator.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) error
	SendTyping(ctx context.Context, chatID int64) error
}

// Machine dispatches inbound events against the session registry and
// supervises route delivery. Safe for concurrent use; per-session
// serialization is provided by the registry.
type Machine struct {
	reg     *session.Registry
	sup     *routegen.Supervisor
	sender  Sender
	history store.Repository // optional
	dialog  *chatlog.Logger  // optional
	logger  *slog.Logger
}

// NewMachine wires the state machine. history and dialog may be nil.
func NewMachine(reg *session.Registry, sup *routegen.Supervisor, sender Sender, history store.Repository, dialog *chatlog.Logger, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		reg:     reg,
		sup:     sup,
		sender:  sender,
		history: history,
		dialog:  dialog,
		logger:  logger,
	}
}

// reply is one outbound message decided under the session lock and sent
// after it is released.
type reply struct {
	text string
	kb   Keyboard
}

// HandleEvent processes one inbound event to completion. It never
// blocks on generation; the only lock held is the session's shard lock,
// and only while deciding the transition.
func (m *Machine) HandleEvent(ctx context.Context, ev Event) {
	metrics.InboundEvents.WithLabelValues(string(ev.Kind)).Inc()
	m.logInbound(ev)

	// A finished generation is picked up on the next inbound event; the
	// session is already idle again by the time the event is handled.
	if !isCancel(ev) {
		if m.reg.ConsumeDone(ev.ChatID) {
			m.logger.Debug("completed generation consumed", "chat_id", ev.ChatID)
		}
	}

	var (
		replies []reply
		launch  bool
		snap    domain.TripRequest
		epoch   uint64
	)

	err := m.reg.Update(ev.ChatID, func(s *domain.Session) error {
		replies, launch, snap, epoch = m.transition(s, ev)
		return nil
	})
	if err != nil {
		m.logger.Error("session update failed", "chat_id", ev.ChatID, "error", err)
		return
	}

	for _, r := range replies {
		m.send(ctx, ev.ChatID, r.text, r.kb)
	}

	if launch {
		// Transient feedback while the model works.
		if err := m.sender.SendTyping(ctx, ev.ChatID); err != nil {
			m.logger.Warn("typing action failed", "chat_id", ev.ChatID, "error", err)
		}
		m.launch(ctx, ev.ChatID, epoch, snap)
	}
}

// transition applies one event to the session under its lock and
// reports the side effects to run afterwards.
func (m *Machine) transition(s *domain.Session, ev Event) (replies []reply, launch bool, snap domain.TripRequest, epoch uint64) {
	say := func(text string, kb Keyboard) {
		replies = append(replies, reply{text: text, kb: kb})
	}

	if ev.Kind == KindCommand {
		switch ev.Command {
		case CommandCancel:
			s.ClearInput()
			s.Stage = domain.StageIdle
			say(msgCancelled, KeyboardRemove)
			m.logger.Info("session cancelled", "chat_id", s.ChatID)
		case CommandStart:
			if s.Stage == domain.StageWaiting {
				metrics.AbsorbedEvents.Inc()
				say(msgPleaseWait, KeyboardNone)
				return
			}
			s.ClearInput()
			s.Stage = domain.StageCollectingInterests
			say(msgGreeting(ev.FirstName), KeyboardRemove)
			m.logger.Info("collection started", "chat_id", s.ChatID)
		default:
			m.logger.Debug("unknown command ignored", "chat_id", s.ChatID, "command", ev.Command)
		}
		return
	}

	switch s.Stage {
	case domain.StageIdle:
		say(msgIdle, KeyboardNone)

	case domain.StageCollectingInterests:
		if ev.Kind != KindText {
			say(msgNeedText, KeyboardNone)
			return
		}
		if err := collect.Interests(s, ev.Text); err != nil {
			say(msgNeedText, KeyboardNone)
			return
		}
		m.logger.Info("interests collected", "chat_id", s.ChatID, "interests", s.Interests)
		say(msgAskTime, KeyboardNone)

	case domain.StageCollectingTime:
		if ev.Kind != KindText {
			say(msgInvalidTime, KeyboardNone)
			return
		}
		if err := collect.Hours(s, ev.Text); err != nil {
			say(msgInvalidTime, KeyboardNone)
			return
		}
		m.logger.Info("time collected", "chat_id", s.ChatID, "hours", s.Hours)
		say(msgAskLocation, KeyboardLocation)

	case domain.StageCollectingLocation:
		var err error
		if ev.Kind == KindLocation && ev.Location != nil {
			err = collect.Location(s, ev.Location.Latitude, ev.Location.Longitude)
		} else {
			err = collect.LocationText(s, ev.Text)
		}
		if err != nil {
			say(msgInvalidLocation, KeyboardLocation)
			return
		}
		snap = s.Snapshot()
		epoch = s.Epoch
		s.Stage = domain.StageWaiting
		launch = true
		m.logger.Info("input complete, entering waiting",
			"chat_id", s.ChatID,
			"lat", snap.Location.Latitude,
			"lon", snap.Location.Longitude)
		say(msgSummary(snap.Interests, snap.Hours, snap.Location.Latitude, snap.Location.Longitude), KeyboardRemove)

	case domain.StageWaiting:
		metrics.AbsorbedEvents.Inc()
		say(msgPleaseWait, KeyboardNone)
	}
	return
}

// launch hands the snapshot to the supervisor. A duplicate launch means
// the previous cycle's task is still running after a cancel/restart;
// the session is detached and the user asked to retry later.
func (m *Machine) launch(ctx context.Context, chatID int64, epoch uint64, snap domain.TripRequest) {
	err := m.sup.Launch(chatID, snap, func(id int64, route string, took time.Duration, genErr error) {
		m.deliver(id, epoch, snap, route, took, genErr)
	})
	if err != nil {
		if errors.Is(err, routegen.ErrAlreadyRunning) {
			m.reg.Reset(chatID)
			m.send(ctx, chatID, msgBusy, KeyboardRemove)
			return
		}
		m.logger.Error("generation launch failed", "chat_id", chatID, "error", err)
		m.reg.Reset(chatID)
		m.send(ctx, chatID, msgGenerationFailed, KeyboardRemove)
	}
}

// deliver runs on the supervisor's task goroutine once per launch. If
// the session was reset or restarted while the task ran, the result is
// dropped without touching the newer state.
func (m *Machine) deliver(chatID int64, epoch uint64, snap domain.TripRequest, route string, took time.Duration, genErr error) {
	ctx := context.Background()

	metrics.GenerationDuration.Observe(took.Seconds())
	status := "ok"
	if genErr != nil {
		status = "error"
	}
	metrics.Generations.WithLabelValues(status).Inc()

	if !m.reg.FinishGeneration(chatID, epoch) {
		m.logger.Info("session detached, dropping generation result", "chat_id", chatID, "status", status)
		return
	}

	text := msgGenerationFailed
	if genErr == nil {
		text = msgRoutePrefix + route
	}
	m.send(ctx, chatID, text, KeyboardRemove)

	if genErr == nil && m.history != nil {
		saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rec := &domain.RouteRecord{
			ChatID:     chatID,
			Interests:  snap.Interests,
			Hours:      snap.Hours,
			Latitude:   snap.Location.Latitude,
			Longitude:  snap.Location.Longitude,
			RouteText:  route,
			DurationMs: took.Milliseconds(),
		}
		if err := m.history.SaveRoute(saveCtx, rec); err != nil {
			m.logger.Error("route history save failed", "chat_id", chatID, "error", err)
		}
	}
}

func (m *Machine) send(ctx context.Context, chatID int64, text string, kb Keyboard) {
	if err := m.sender.SendMessage(ctx, chatID, text, kb); err != nil {
		m.logger.Error("send failed", "chat_id", chatID, "error", err)
		return
	}
	if m.dialog != nil {
		stage := ""
		if s, ok := m.reg.Peek(chatID); ok {
			stage = s.Stage.String()
		}
		m.dialog.Log(chatlog.Event{
			ChatID:    chatID,
			Direction: chatlog.DirectionOutbound,
			Kind:      "message",
			Stage:     stage,
			Text:      text,
		})
	}
}

func (m *Machine) logInbound(ev Event) {
	if m.dialog == nil {
		return
	}
	text := ev.Text
	if ev.Kind == KindCommand {
		text = "/" + ev.Command
	}
	m.dialog.Log(chatlog.Event{
		ChatID:    ev.ChatID,
		Direction: chatlog.DirectionInbound,
		Kind:      string(ev.Kind),
		Text:      text,
	})
}

func isCancel(ev Event) bool {
	return ev.Kind == KindCommand && ev.Command == CommandCancel
}
