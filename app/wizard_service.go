package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"gridprep/internal/config"
	"gridprep/internal/debounce"
	"gridprep/internal/errors"
	"gridprep/internal/flow"
	"gridprep/models"
	"gridprep/ports"
)

// WizardSession is one live upload wizard: its flow store plus the
// bookkeeping the session manager needs to expire it.
type WizardSession struct {
	ID    string
	Store *flow.Store

	mu           sync.Mutex
	lastAccessed time.Time
	version      int
}

func (s *WizardSession) touch() {
	s.mu.Lock()
	s.lastAccessed = time.Now()
	s.mu.Unlock()
}

// LastAccessed returns the last time any operation touched this session.
func (s *WizardSession) LastAccessed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessed
}

func (s *WizardSession) nextVersion() int {
	s.mu.Lock()
	s.version++
	v := s.version
	s.mu.Unlock()
	return v
}

// WizardService owns wizard sessions: creation, resume, navigation,
// persistence on every transition, and the completion hand-off. Heavy data
// work is delegated to the remote data service; this service only sequences
// it.
type WizardService struct {
	dataService ports.DataService
	repo        ports.FlowRepository
	bus         ports.EventBus
	cfg         config.WizardConfig
	persistence config.PersistenceConfig

	sessionsMu sync.RWMutex
	sessions   map[string]*WizardSession

	// writes coalesces bursts of per-column decision edits into one
	// snapshot write per session, so typing in a rename cell does not hit
	// the repository per keystroke.
	writes *debounce.Debouncer

	onComplete func(models.CompletionResult)
}

// NewWizardService wires the wizard orchestrator. repo and bus may not be
// nil; tests pass fakes.
func NewWizardService(dataService ports.DataService, repo ports.FlowRepository, bus ports.EventBus, cfg *config.Config) *WizardService {
	return &WizardService{
		dataService: dataService,
		repo:        repo,
		bus:         bus,
		cfg:         cfg.Wizard,
		persistence: cfg.Persistence,
		sessions:    make(map[string]*WizardSession),
		writes:      debounce.New(cfg.Wizard.DebounceWindow),
	}
}

// OnComplete registers the callback invoked once when a session reaches the
// terminal stage. At most one callback is held.
func (s *WizardService) OnComplete(fn func(models.CompletionResult)) {
	s.onComplete = fn
}

// CreateSession starts a fresh wizard session. skipFileSelect starts the
// flow at the structural scan for an already-referenced dataframe.
func (s *WizardService) CreateSession(ctx context.Context, skipFileSelect bool) (*WizardSession, error) {
	session := &WizardSession{
		ID:           uuid.NewString(),
		Store:        flow.NewStore(flow.Options{SkipFileSelect: skipFileSelect}),
		lastAccessed: time.Now(),
	}
	s.hookTransitions(session)

	s.sessionsMu.Lock()
	s.sessions[session.ID] = session
	s.sessionsMu.Unlock()

	log.Printf("[Wizard] Created session %s (skipFileSelect=%v)", session.ID, skipFileSelect)
	return session, nil
}

// ResumeSession rebuilds a session from its persisted snapshot. A session
// already live in memory is returned as-is; otherwise the snapshot is loaded
// and restored. No snapshot means the session is unknown.
func (s *WizardService) ResumeSession(ctx context.Context, sessionID string) (*WizardSession, error) {
	s.sessionsMu.RLock()
	existing, ok := s.sessions[sessionID]
	s.sessionsMu.RUnlock()
	if ok {
		existing.touch()
		return existing, nil
	}

	snapshot, err := s.repo.GetSnapshot(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session snapshot")
	}
	if snapshot == nil {
		return nil, errors.SessionNotFound(sessionID)
	}

	session := &WizardSession{
		ID:           sessionID,
		Store:        flow.NewStore(flow.Options{}),
		lastAccessed: time.Now(),
		version:      snapshot.Version,
	}
	if err := session.Store.Restore(snapshot.State); err != nil {
		return nil, errors.Wrap(err, "failed to restore session state")
	}
	s.hookTransitions(session)

	s.sessionsMu.Lock()
	s.sessions[sessionID] = session
	s.sessionsMu.Unlock()

	log.Printf("[Wizard] Resumed session %s at stage %s", sessionID, session.Store.CurrentStage())
	return session, nil
}

// Session returns a live session or SESSION_NOT_FOUND.
func (s *WizardService) Session(sessionID string) (*WizardSession, error) {
	s.sessionsMu.RLock()
	session, ok := s.sessions[sessionID]
	s.sessionsMu.RUnlock()
	if !ok {
		return nil, errors.SessionNotFound(sessionID)
	}
	session.touch()
	return session, nil
}

// EndSession drops a session from memory and removes its snapshot. Used
// when the user abandons the wizard explicitly.
func (s *WizardService) EndSession(ctx context.Context, sessionID string) error {
	s.sessionsMu.Lock()
	delete(s.sessions, sessionID)
	s.sessionsMu.Unlock()

	s.writes.Cancel(sessionID)
	if err := s.repo.DeleteSnapshot(ctx, sessionID); err != nil {
		return errors.Wrap(err, "failed to delete session snapshot")
	}
	return nil
}

// hookTransitions wires persistence and event fan-out to the store's
// transition hook. Every stage change writes a snapshot; reaching the
// terminal stage additionally fires completion.
func (s *WizardService) hookTransitions(session *WizardSession) {
	session.Store.OnTransition(func(state flow.FlowState) {
		session.touch()
		// The transition snapshot carries everything a pending debounced
		// write would have saved.
		s.writes.Cancel(session.ID)
		s.persist(session, state)

		s.bus.Publish(models.FlowEvent{
			Type:      models.EventStageChanged,
			SessionID: session.ID,
			Stage:     state.CurrentStage.String(),
		})

		if state.CurrentStage.Terminal() {
			s.complete(session, state)
		}
	})
}

func (s *WizardService) persist(session *WizardSession, state flow.FlowState) {
	snapshot := &models.WizardSnapshot{
		SessionID: session.ID,
		State:     state,
		Version:   session.nextVersion(),
		UpdatedAt: time.Now(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.SaveSnapshot(ctx, snapshot); err != nil {
		// Persistence is best-effort: the in-memory session keeps working,
		// only resume-after-reload is degraded.
		log.Printf("[Wizard] Failed to persist session %s: %v", session.ID, err)
	}
}

// persistMutation writes a snapshot after a non-transition mutation when the
// deployment opts into write-on-mutation durability.
func (s *WizardService) persistMutation(session *WizardSession) {
	if !s.persistence.WriteOnMutat {
		return
	}
	s.persist(session, session.Store.Snapshot())
}

// debouncePersist is persistMutation for high-frequency edit paths: the
// write is scheduled per session and re-scheduled on every call, so only
// the final state of a burst is flushed after the debounce window.
func (s *WizardService) debouncePersist(session *WizardSession) {
	if !s.persistence.WriteOnMutat {
		return
	}
	s.writes.Schedule(session.ID, func() {
		s.persist(session, session.Store.Snapshot())
	})
}

func (s *WizardService) complete(session *WizardSession, state flow.FlowState) {
	result := models.CompletionResult{SessionID: session.ID, State: state}

	if s.onComplete != nil {
		s.onComplete(result)
	}
	s.bus.Publish(models.FlowEvent{
		Type:      models.EventFlowCompleted,
		SessionID: session.ID,
	})
	log.Printf("[Wizard] Session %s completed with %d file(s)", session.ID, len(state.UploadedFiles))
}

// Navigation. Each call returns the stage the session is on afterwards.

func (s *WizardService) NextStage(sessionID string) (flow.Stage, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return 0, err
	}
	stage, _ := session.Store.GoToNextStage()
	return stage, nil
}

func (s *WizardService) PreviousStage(sessionID string) (flow.Stage, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return 0, err
	}
	stage, _ := session.Store.GoToPreviousStage()
	return stage, nil
}

func (s *WizardService) JumpToStage(sessionID string, stage flow.Stage) (flow.Stage, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return 0, err
	}
	if err := session.Store.GoToStage(stage); err != nil {
		return 0, err
	}
	return session.Store.CurrentStage(), nil
}

func (s *WizardService) RestartFlow(sessionID string) (flow.Stage, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return 0, err
	}
	session.Store.RestartFlow()
	return session.Store.CurrentStage(), nil
}

// StartCleanup prunes idle sessions in the background until ctx is
// cancelled. Idle sessions are dropped from memory; their snapshots stay in
// the repository until the snapshot TTL cleanup removes them, so an idle
// session can still resume.
func (s *WizardService) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.pruneIdleSessions()
				s.pruneStaleSnapshots(ctx)
			}
		}
	}()
}

func (s *WizardService) pruneIdleSessions() {
	cutoff := time.Now().Add(-s.cfg.SessionMaxAge)

	s.sessionsMu.Lock()
	for id, session := range s.sessions {
		if session.LastAccessed().Before(cutoff) {
			delete(s.sessions, id)
			log.Printf("[Wizard] Expired idle session %s", id)
		}
	}
	s.sessionsMu.Unlock()
}

func (s *WizardService) pruneStaleSnapshots(ctx context.Context) {
	removed, err := s.repo.CleanupOlderThan(ctx, s.persistence.SnapshotTTL)
	if err != nil {
		log.Printf("[Wizard] Snapshot cleanup failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("[Wizard] Cleaned up %d stale snapshot(s)", removed)
	}
}

// SessionCount returns the number of live sessions.
func (s *WizardService) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}
