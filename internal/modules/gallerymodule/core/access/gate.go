// Package access resolves the media-access grant level.
package access

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"

	"github.com/mantonx/gallery/internal/logger"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

// PermissionProvider is the platform permission API
type PermissionProvider interface {
	// Status returns the current grant state without side effects
	Status() types.GrantState

	// Prompt asks the user and blocks until they answer or ctx is done.
	// Platforms that already have a decision return it immediately.
	Prompt(ctx context.Context) (types.GrantState, error)

	// SupportsUpgrade reports whether a limited grant can be widened to
	// full access by prompting again
	SupportsUpgrade() bool
}

// LevelFor maps a platform grant state to an access level.
// Anything unrecognised degrades to denied.
func LevelFor(state types.GrantState) types.AccessLevel {
	switch state {
	case types.GrantGranted:
		return types.AccessFull
	case types.GrantLimited:
		return types.AccessPartialSelection
	default:
		return types.AccessDenied
	}
}

// PlatformGate is an AccessGate backed by a PermissionProvider
type PlatformGate struct {
	provider PermissionProvider
	logger   hclog.Logger

	// shared prompts run under ctx, never under a caller's context
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	decided  bool
	decision types.AccessLevel
	prompts  singleflight.Group
}

// NewPlatformGate creates a gate over provider
func NewPlatformGate(provider PermissionProvider, log hclog.Logger) *PlatformGate {
	ctx, cancel := context.WithCancel(context.Background())
	return &PlatformGate{
		provider: provider,
		logger:   logger.OrNull(log).Named("access"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Close cancels the context prompts run under, aborting any pending prompt
func (g *PlatformGate) Close() {
	g.cancel()
}

// CheckAccess returns the current level. It never fails.
func (g *PlatformGate) CheckAccess() types.AccessLevel {
	return LevelFor(g.provider.Status())
}

// Determined reports whether the platform has a decision at all.
// An undetermined gate means the library cannot be queried yet.
func (g *PlatformGate) Determined() bool {
	return g.provider.Status() != types.GrantNotDetermined
}

// RequestAccess prompts the user unless a terminal decision is cached.
// A cached partial grant is re-prompted when the platform can upgrade it.
// Concurrent callers share one prompt; ctx only bounds the caller's wait.
func (g *PlatformGate) RequestAccess(ctx context.Context) (types.AccessLevel, error) {
	g.mu.Lock()
	if g.decided && !g.shouldReprompt(g.decision) {
		level := g.decision
		g.mu.Unlock()
		return level, nil
	}
	g.mu.Unlock()

	ch := g.prompts.DoChan("prompt", func() (interface{}, error) {
		state, err := g.provider.Prompt(g.ctx)
		if err != nil {
			return types.AccessDenied, err
		}
		level := LevelFor(state)

		g.mu.Lock()
		if state != types.GrantNotDetermined {
			g.decided = true
			g.decision = level
		}
		g.mu.Unlock()

		g.logger.Debug("access prompt answered", "state", state, "level", level.String())
		return level, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return types.AccessDenied, res.Err
		}
		return res.Val.(types.AccessLevel), nil
	case <-ctx.Done():
		return types.AccessDenied, ctx.Err()
	}
}

// Reset forgets the cached decision, e.g. after the user changed it in
// system settings
func (g *PlatformGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.decided = false
	g.decision = types.AccessDenied
}

func (g *PlatformGate) shouldReprompt(level types.AccessLevel) bool {
	return level == types.AccessPartialSelection && g.provider.SupportsUpgrade()
}

// StaticGate always reports the same level
type StaticGate struct {
	Level types.AccessLevel
}

// NewStaticGate creates a gate fixed at level
func NewStaticGate(level types.AccessLevel) *StaticGate {
	return &StaticGate{Level: level}
}

// CheckAccess returns the fixed level
func (g *StaticGate) CheckAccess() types.AccessLevel {
	return g.Level
}

// RequestAccess returns the fixed level without prompting
func (g *StaticGate) RequestAccess(ctx context.Context) (types.AccessLevel, error) {
	if err := ctx.Err(); err != nil {
		return types.AccessDenied, err
	}
	return g.Level, nil
}

// ParseLevel maps a config value to a level; unknown values are denied
func ParseLevel(s string) types.AccessLevel {
	switch s {
	case "full":
		return types.AccessFull
	case "partial":
		return types.AccessPartialSelection
	default:
		return types.AccessDenied
	}
}
