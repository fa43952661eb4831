package ports

import (
	"context"

	"github.com/mikey/phish-fusion/internal/core"
)

// EmailFilter defines the interface for email filtering
type EmailFilter interface {
	// ProcessMessage scores a raw RFC 5322 message
	ProcessMessage(ctx context.Context, raw []byte) (*core.Verdict, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}

// Scorer turns a raw message into a verdict
type Scorer interface {
	Score(ctx context.Context, msg core.RawMessage) (*core.Verdict, error)
}
