// MAX messenger transport built on the maxbot API client.
package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/UniDesk/internal/maxbot"
	"github.com/BTreeMap/UniDesk/internal/models"
)

// pollRetryDelay is how long the poll loop waits after a failed updates request.
const pollRetryDelay = 5 * time.Second

// MaxService implements Service over the MAX Bot long-poll API.
type MaxService struct {
	client  *maxbot.Client
	updates chan models.Update

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMaxService creates a MAX transport around an API client.
func NewMaxService(client *maxbot.Client) *MaxService {
	return &MaxService{
		client:  client,
		updates: make(chan models.Update, DefaultUpdateChannelBufferSize),
	}
}

// Start launches the long-poll loop.
func (s *MaxService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	pollCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.pollLoop(pollCtx)
	slog.Info("MaxService.Start: transport started")
	return nil
}

// Stop terminates the poll loop and closes the update channel.
func (s *MaxService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	close(s.updates)
	slog.Info("MaxService.Stop: transport stopped")
	return nil
}

// Updates exposes the inbound update stream.
func (s *MaxService) Updates() <-chan models.Update {
	return s.updates
}

// SendMessage converts a transport-neutral message to the MAX wire format.
func (s *MaxService) SendMessage(ctx context.Context, userID int64, msg models.Message) error {
	out := maxbot.OutboundMessage{Text: msg.Text}
	if msg.Markdown {
		out.Format = "markdown"
	}
	if len(msg.Keyboard) > 0 {
		rows := make([][]maxbot.KeyboardButton, 0, len(msg.Keyboard))
		for _, row := range msg.Keyboard {
			wireRow := make([]maxbot.KeyboardButton, 0, len(row))
			for _, b := range row {
				wireRow = append(wireRow, maxbot.CallbackButton(b.Label, b.Payload))
			}
			rows = append(rows, wireRow)
		}
		out.Attachments = []maxbot.Attachment{maxbot.InlineKeyboard(rows)}
	}
	return s.client.SendMessage(ctx, userID, out)
}

func (s *MaxService) pollLoop(ctx context.Context) {
	defer close(s.done)
	var marker int64
	for {
		if ctx.Err() != nil {
			return
		}
		page, err := s.client.GetUpdates(ctx, marker)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("MaxService.pollLoop: updates request failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollRetryDelay):
			}
			continue
		}
		marker = page.Marker
		for _, wire := range page.Updates {
			if upd, ok := convertUpdate(wire); ok {
				s.emit(upd)
			}
		}
	}
}

// convertUpdate maps a wire update to the transport-neutral form. A bot_started
// event is surfaced as a greeting so the engine welcomes the user.
func convertUpdate(wire maxbot.Update) (models.Update, bool) {
	switch wire.UpdateType {
	case maxbot.UpdateTypeMessageCreated:
		if wire.Message == nil {
			return models.Update{}, false
		}
		return models.Update{
			UserID:   wire.Message.Sender.UserID,
			UserName: wire.Message.Sender.Name,
			Text:     wire.Message.Body.Text,
			Time:     wire.Message.Timestamp,
		}, true
	case maxbot.UpdateTypeMessageCallback:
		if wire.Callback == nil {
			return models.Update{}, false
		}
		return models.Update{
			UserID:   wire.Callback.User.UserID,
			UserName: wire.Callback.User.Name,
			Text:     wire.Callback.Payload,
			Callback: true,
			Time:     wire.Callback.Timestamp,
		}, true
	case maxbot.UpdateTypeBotStarted:
		if wire.Message == nil {
			return models.Update{}, false
		}
		return models.Update{
			UserID:   wire.Message.Sender.UserID,
			UserName: wire.Message.Sender.Name,
			Text:     "привет",
			Time:     wire.Timestamp,
		}, true
	default:
		slog.Debug("MaxService.convertUpdate: ignoring update type", "type", wire.UpdateType)
		return models.Update{}, false
	}
}

// emit delivers an update without blocking the poll loop. Updates are dropped
// with a warning when the engine falls behind.
func (s *MaxService) emit(u models.Update) {
	select {
	case s.updates <- u:
	default:
		slog.Warn("MaxService.emit: update channel full, dropping update", "user_id", u.UserID)
	}
}
