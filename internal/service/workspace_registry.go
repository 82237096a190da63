package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-arena/internal/observability"
)

// WorkspaceRegistry owns one workspace per user and evicts idle ones.
type WorkspaceRegistry struct {
	opts    WorkspaceOptions
	idleTTL time.Duration
	logger  zerolog.Logger
	now     func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace
	scheduler  gocron.Scheduler
}

// NewWorkspaceRegistry builds an empty registry.
func NewWorkspaceRegistry(opts WorkspaceOptions, idleTTL time.Duration, logger zerolog.Logger) *WorkspaceRegistry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &WorkspaceRegistry{
		opts:       opts,
		idleTTL:    idleTTL,
		logger:     logger.With().Str("component", "workspace_registry").Logger(),
		now:        time.Now,
		workspaces: make(map[string]*Workspace),
	}
}

// Get returns the workspace of userID, creating it on first use.
func (r *WorkspaceRegistry) Get(userID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	if workspace, ok := r.workspaces[userID]; ok {
		return workspace
	}
	workspace := NewWorkspace(userID, r.opts, r.logger)
	r.workspaces[userID] = workspace
	observability.WorkspacesActive().Inc()
	return workspace
}

// Lookup returns the workspace of userID without creating it.
func (r *WorkspaceRegistry) Lookup(userID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	workspace, ok := r.workspaces[userID]
	return workspace, ok
}

// Drop closes and forgets the workspace of userID.
func (r *WorkspaceRegistry) Drop(userID string) {
	r.mu.Lock()
	workspace, ok := r.workspaces[userID]
	delete(r.workspaces, userID)
	r.mu.Unlock()

	if ok {
		workspace.Close()
		observability.WorkspacesActive().Dec()
	}
}

// Sweep closes workspaces idle for longer than the TTL and without listeners.
func (r *WorkspaceRegistry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	idle := make([]*Workspace, 0)
	for userID, workspace := range r.workspaces {
		if workspace.Listeners() == 0 && workspace.IdleSince().Before(cutoff) {
			idle = append(idle, workspace)
			delete(r.workspaces, userID)
		}
	}
	r.mu.Unlock()

	for _, workspace := range idle {
		workspace.Close()
		observability.WorkspacesActive().Dec()
	}
	if len(idle) > 0 {
		r.logger.Info().Int("evicted", len(idle)).Msg("idle workspaces evicted")
	}
	return len(idle)
}

// Len returns the number of live workspaces.
func (r *WorkspaceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// StartSweeper schedules Sweep every interval.
func (r *WorkspaceRegistry) StartSweeper(interval time.Duration) error {
	if interval <= 0 {
		interval = r.idleTTL / 2
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create workspace scheduler: %w", err)
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { r.Sweep() }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return fmt.Errorf("schedule workspace sweep: %w", err)
	}
	scheduler.Start()

	r.mu.Lock()
	r.scheduler = scheduler
	r.mu.Unlock()
	return nil
}

// Close stops the sweeper and every workspace.
func (r *WorkspaceRegistry) Close() {
	r.mu.Lock()
	scheduler := r.scheduler
	workspaces := r.workspaces
	r.workspaces = make(map[string]*Workspace)
	r.mu.Unlock()

	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to stop workspace scheduler")
		}
	}
	for _, workspace := range workspaces {
		workspace.Close()
		observability.WorkspacesActive().Dec()
	}
}
