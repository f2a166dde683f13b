package datastub

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"gridprep/models"
)

// uploadSession tracks one multi-sheet workbook upload awaiting per-sheet
// conversion.
type uploadSession struct {
	ID       string
	FileName string
	Path     string
	Sheets   []string
}

// task is one asynchronous conversion job.
type task struct {
	ID     string
	Status string
	Error  string
	Result json.RawMessage
}

// store holds the stub's on-disk files and in-memory registries.
type store struct {
	tmpDir     string
	durableDir string

	mu         sync.Mutex
	uploads    map[string]*uploadSession
	tasks      map[string]*task
	validators map[string]*models.ValidatorConfig
}

func newStore(dataDir string) (*store, error) {
	tmpDir := filepath.Join(dataDir, "tmp")
	durableDir := filepath.Join(dataDir, "durable")
	for _, dir := range []string{tmpDir, durableDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	return &store{
		tmpDir:     tmpDir,
		durableDir: durableDir,
		uploads:    make(map[string]*uploadSession),
		tasks:      make(map[string]*task),
		validators: make(map[string]*models.ValidatorConfig),
	}, nil
}

// saveUpload writes an incoming file under the temp dir with a unique prefix
// so repeated uploads of the same name never collide.
func (s *store) saveUpload(fileName string, content io.Reader) (string, error) {
	safe := filepath.Base(fileName)
	path := filepath.Join(s.tmpDir, uuid.NewString()[:8]+"_"+safe)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, content); err != nil {
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	return path, nil
}

func (s *store) registerUpload(fileName, path string, sheets []string) *uploadSession {
	session := &uploadSession{
		ID:       uuid.NewString(),
		FileName: fileName,
		Path:     path,
		Sheets:   sheets,
	}
	s.mu.Lock()
	s.uploads[session.ID] = session
	s.mu.Unlock()
	return session
}

func (s *store) upload(id string) (*uploadSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.uploads[id]
	return session, ok
}

// durablePath builds the artifact path for a materialized table. The folder
// structure variant groups sheets under the workbook's name.
func (s *store) durablePath(fileName, sheet string, folderStructure bool) string {
	base := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if sheet != "" && folderStructure {
		return filepath.Join(s.durableDir, base, sheet+".csv")
	}
	if sheet != "" {
		return filepath.Join(s.durableDir, base+"_"+sheet+".csv")
	}
	return filepath.Join(s.durableDir, base+".csv")
}

// startTask registers a pending task and runs fn in the background; the
// outcome flips the task to completed or failed.
func (s *store) startTask(fn func() (any, error)) *task {
	t := &task{ID: uuid.NewString(), Status: models.TaskStatusPending}
	s.mu.Lock()
	s.tasks[t.ID] = t
	s.mu.Unlock()

	go func() {
		s.mu.Lock()
		t.Status = models.TaskStatusRunning
		s.mu.Unlock()

		result, err := fn()

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			t.Status = models.TaskStatusFailed
			t.Error = err.Error()
			return
		}
		payload, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			t.Status = models.TaskStatusFailed
			t.Error = marshalErr.Error()
			return
		}
		t.Status = models.TaskStatusCompleted
		t.Result = payload
	}()
	return t
}

func (s *store) task(id string) (task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return task{}, false
	}
	return *t, true
}

func (s *store) createValidator(name string) models.ValidatorConfig {
	cfg := &models.ValidatorConfig{
		ValidatorID: uuid.NewString(),
		Name:        name,
		ColumnTypes: make(map[string]string),
		ColumnRoles: make(map[string]string),
		Rules:       make(map[string]any),
	}
	s.mu.Lock()
	s.validators[cfg.ValidatorID] = cfg
	out := snapshotValidator(cfg)
	s.mu.Unlock()
	return out
}

func (s *store) validator(id string) (*models.ValidatorConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.validators[id]
	return cfg, ok
}

// snapshotValidator copies a registered config, maps included, so a handler
// can encode it after releasing the store lock while another request mutates
// the original. Callers must hold the store lock.
func snapshotValidator(cfg *models.ValidatorConfig) models.ValidatorConfig {
	out := *cfg
	out.ColumnTypes = make(map[string]string, len(cfg.ColumnTypes))
	for k, v := range cfg.ColumnTypes {
		out.ColumnTypes[k] = v
	}
	out.ColumnRoles = make(map[string]string, len(cfg.ColumnRoles))
	for k, v := range cfg.ColumnRoles {
		out.ColumnRoles[k] = v
	}
	out.Rules = make(map[string]any, len(cfg.Rules))
	for k, v := range cfg.Rules {
		out.Rules[k] = v
	}
	return out
}

// cleanupTasks drops terminal tasks older than the retention window. The
// stub keeps no timestamps per task; retention is approximated by capping the
// registry size instead.
func (s *store) cleanupTasks(maxTasks int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) <= maxTasks {
		return
	}
	for id, t := range s.tasks {
		if t.Status == models.TaskStatusCompleted || t.Status == models.TaskStatusFailed {
			delete(s.tasks, id)
			if len(s.tasks) <= maxTasks {
				return
			}
		}
	}
}
