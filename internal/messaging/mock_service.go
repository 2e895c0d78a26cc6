// In-memory transport used by tests.
package messaging

import (
	"context"
	"sync"

	"github.com/BTreeMap/UniDesk/internal/models"
)

// SentMessage records one outbound message together with its recipient.
type SentMessage struct {
	UserID  int64
	Message models.Message
}

// MockService is an in-memory Service implementation for tests. It records
// every sent message and lets tests inject inbound updates.
type MockService struct {
	mu      sync.Mutex
	sent    []SentMessage
	updates chan models.Update
	sendErr error
}

// NewMockService creates a mock transport.
func NewMockService() *MockService {
	return &MockService{updates: make(chan models.Update, DefaultUpdateChannelBufferSize)}
}

func (m *MockService) Start(ctx context.Context) error { return nil }

func (m *MockService) Stop() error {
	close(m.updates)
	return nil
}

func (m *MockService) Updates() <-chan models.Update {
	return m.updates
}

func (m *MockService) SendMessage(ctx context.Context, userID int64, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, SentMessage{UserID: userID, Message: msg})
	return nil
}

// Inject queues an inbound update as if it arrived from the platform.
func (m *MockService) Inject(u models.Update) {
	m.updates <- u
}

// Sent returns a copy of all recorded outbound messages.
func (m *MockService) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// Reset clears the recorded messages.
func (m *MockService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

// FailWith makes subsequent sends return the given error.
func (m *MockService) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}
