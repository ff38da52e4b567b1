package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/canvas-assignment-manager/internal/models"
	appErrors "github.com/noah-isme/canvas-assignment-manager/pkg/errors"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// CanvasVerifier checks credentials the way the setup screen does: it lists the active courses.
// Clients that can ping (the relay-aware Canvas client) are pinged first so an unreachable relay
// is reported before the credential check.
type CanvasVerifier struct {
	newClient ClientFactory
	timeout   time.Duration
}

// NewCanvasVerifier builds a verifier over the same client factory the aggregator uses.
func NewCanvasVerifier(factory ClientFactory, timeout time.Duration) *CanvasVerifier {
	return &CanvasVerifier{newClient: factory, timeout: timeout}
}

// Verify returns the upstream or transport error that stopped the check.
func (v *CanvasVerifier) Verify(ctx context.Context, cfg models.APIConfig) error {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	client := v.newClient(cfg)
	if p, ok := client.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("ping canvas: %w", err)
		}
	}

	var limit *appErrors.PageLimitError
	if _, err := client.ListActiveCourses(ctx); err != nil && !errors.As(err, &limit) {
		return fmt.Errorf("list active courses: %w", err)
	}
	return nil
}
