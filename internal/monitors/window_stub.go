package monitors

import (
	"context"
	"errors"

	"github.com/vthunder/bud2/internal/models"
)

// NoWindowProvider is a ForegroundWindowProvider that always reports no
// window available; it is the default on platforms with no windowing
// collaborator wired in yet (headless Linux, CI). Real desktop builds
// inject a platform-specific implementation (X11/Win32/Cocoa) at startup.
type NoWindowProvider struct{}

// ErrNoWindowProvider is returned by NoWindowProvider to distinguish "no
// collaborator wired" from "collaborator tried and failed".
var ErrNoWindowProvider = errors.New("monitors: no foreground window provider configured")

func (NoWindowProvider) ForegroundWindow(ctx context.Context) (*models.WindowInfo, error) {
	return nil, ErrNoWindowProvider
}
