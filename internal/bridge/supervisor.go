package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"langbridge/internal/config"
)

// instanceKey identifies one running server: a language served from a
// particular project root.
type instanceKey struct {
	languageID  string
	projectRoot string
}

// Supervisor owns the registry of running server instances. It is safe
// for concurrent use.
type Supervisor struct {
	cfg    *config.Config
	logger *slog.Logger

	mu        sync.Mutex
	instances map[instanceKey]*Instance
	closed    bool
}

// InstanceStatus is a point-in-time snapshot of a running instance.
type InstanceStatus struct {
	LanguageID  string `json:"language"`
	ProjectRoot string `json:"projectRoot"`
	Port        int    `json:"port"`
	PID         int    `json:"pid"`
	Clients     int    `json:"clients"`
	UptimeSec   int64  `json:"uptimeSec"`
}

// AvailableServer describes a configured server and whether its
// executable is installed.
type AvailableServer struct {
	LanguageID string `json:"language"`
	Command    string `json:"command"`
	Installed  bool   `json:"installed"`
	Path       string `json:"path,omitempty"`
}

// NewSupervisor creates a supervisor over the given configuration.
func NewSupervisor(cfg *config.Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:       cfg,
		logger:    logger,
		instances: make(map[instanceKey]*Instance),
	}
}

// SetConfig swaps the configuration, e.g. after a live reload. Running
// instances keep their original launch settings.
func (s *Supervisor) SetConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Start ensures a server is running for the language and project root and
// returns its loopback port. Starting an already running pair is
// idempotent and returns the existing port.
func (s *Supervisor) Start(ctx context.Context, languageID, projectRoot string) (int, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return 0, fmt.Errorf("resolve project root: %w", err)
	}
	key := instanceKey{languageID: languageID, projectRoot: root}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSupervisorClosed
	}
	if inst, ok := s.instances[key]; ok {
		return inst.Port(), nil
	}

	sc, ok := s.cfg.ServerForLanguage(languageID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownLanguage, languageID)
	}
	if _, err := exec.LookPath(sc.Command); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrServerNotFound, sc.Command)
	}

	inst, err := startInstance(ctx, languageID, root, sc, s.logger, s.handleExit)
	if err != nil {
		return 0, err
	}
	s.instances[key] = inst
	return inst.Port(), nil
}

// handleExit removes a dead instance from the registry so the next Start
// for that pair launches a fresh server.
func (s *Supervisor) handleExit(inst *Instance, cause error) {
	key := instanceKey{languageID: inst.LanguageID, projectRoot: inst.ProjectRoot}

	s.mu.Lock()
	if s.instances[key] == inst {
		delete(s.instances, key)
	}
	s.mu.Unlock()

	if cause != nil {
		s.logger.Warn("server instance removed", "language", inst.LanguageID, "root", inst.ProjectRoot, "cause", cause)
	}
}

// Stop shuts down the instance for the given language and project root.
// Stopping a pair that is not running is a no-op.
func (s *Supervisor) Stop(languageID, projectRoot string) error {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	key := instanceKey{languageID: languageID, projectRoot: root}

	s.mu.Lock()
	inst, ok := s.instances[key]
	if ok {
		delete(s.instances, key)
	}
	s.mu.Unlock()

	if ok {
		inst.Stop()
	}
	return nil
}

// StopAll shuts down every running instance.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	insts := make([]*Instance, 0, len(s.instances))
	for _, inst := range s.instances {
		insts = append(insts, inst)
	}
	s.instances = make(map[instanceKey]*Instance)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, inst := range insts {
		wg.Add(1)
		go func(inst *Instance) {
			defer wg.Done()
			inst.Stop()
		}(inst)
	}
	wg.Wait()
}

// Close stops everything and rejects future starts.
func (s *Supervisor) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.StopAll()
}

// Status returns a snapshot of every running instance, ordered by
// language then project root.
func (s *Supervisor) Status() []InstanceStatus {
	s.mu.Lock()
	out := make([]InstanceStatus, 0, len(s.instances))
	for _, inst := range s.instances {
		out = append(out, InstanceStatus{
			LanguageID:  inst.LanguageID,
			ProjectRoot: inst.ProjectRoot,
			Port:        inst.Port(),
			PID:         inst.PID(),
			Clients:     inst.ClientCount(),
			UptimeSec:   int64(inst.Uptime() / time.Second),
		})
	}
	s.mu.Unlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].LanguageID != out[b].LanguageID {
			return out[a].LanguageID < out[b].LanguageID
		}
		return out[a].ProjectRoot < out[b].ProjectRoot
	})
	return out
}

// ListAvailable reports every configured server and whether its command
// resolves on PATH.
func (s *Supervisor) ListAvailable() []AvailableServer {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	out := make([]AvailableServer, 0, len(cfg.Servers))
	for lang, sc := range cfg.Servers {
		entry := AvailableServer{LanguageID: lang, Command: sc.Command}
		if path, err := exec.LookPath(sc.Command); err == nil {
			entry.Installed = true
			entry.Path = path
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].LanguageID < out[b].LanguageID })
	return out
}
