// Package messaging provides the chat transport abstraction for UniDesk.
//
// The bot engine consumes transport-neutral updates and sends transport-neutral
// messages; implementations adapt a concrete messenger platform behind this
// interface.
package messaging

import (
	"context"

	"github.com/BTreeMap/UniDesk/internal/models"
)

// DefaultUpdateChannelBufferSize is the buffer of the inbound update channel.
// A full buffer drops updates rather than blocking the poll loop.
const DefaultUpdateChannelBufferSize = 100

// Service abstracts the messenger transport.
type Service interface {
	// Start begins receiving updates. It returns once the transport is running;
	// delivery continues in the background until the context is cancelled or
	// Stop is called.
	Start(ctx context.Context) error
	// Stop shuts the transport down and closes the update channel.
	Stop() error
	// SendMessage delivers one outbound message to a messenger user.
	SendMessage(ctx context.Context, userID int64, msg models.Message) error
	// Updates exposes the inbound update stream.
	Updates() <-chan models.Update
}
