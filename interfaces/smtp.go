package interfaces

import (
	"context"

	"github.com/rg345/smtp-ui/internal/models"
)

// SMTPClient is the transport capability for one profile.
type SMTPClient interface {
	// Verify completes a connection and authentication handshake without
	// sending anything.
	Verify(ctx context.Context) error
	// Send hands one message to the server and returns its message id. All
	// failure paths resolve to an error wrapping ErrDeliveryRejected.
	Send(ctx context.Context, msg *models.OutboundMessage) (string, error)
}

// SMTPClientFactory builds clients from profiles, so the dispatch engine can
// be exercised with deterministic fakes.
type SMTPClientFactory interface {
	ClientFor(profile *models.SmtpProfile) SMTPClient
}
