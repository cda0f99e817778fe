// Package workspace implements the storage subsystem's public surface:
// workspace registry, file operations, search, recents, bulk transfer.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/storage"
)

const (
	// sysNamespace holds cross-workspace state (registry, recents). User
	// workspace names may not start with a dot, so it can never collide.
	sysNamespace = ".othala"

	registryKey = "registry.json"
	recentsKey  = "recents.json"

	// DefaultWorkspace is the distinguished workspace that always exists
	// and cannot be deleted.
	DefaultWorkspace = "Default"

	defaultRecentsLimit = 20
)

// NotifyFunc receives change events after successful mutations. kind is one
// of "file.created", "file.updated", "file.deleted", "workspace.changed".
type NotifyFunc func(kind, workspace, path string)

// Service coordinates the metadata index and content store for every
// workspace. All methods take the workspace name explicitly; the persisted
// "active" pointer is registry state for collaborators, never ambient state
// inside this package.
type Service struct {
	backend storage.Backend
	logger  *slog.Logger

	defaultWS    string
	recentsLimit int
	notify       NotifyFunc

	// Index mutations are serialized per workspace: the whole-index blob is
	// the only contended resource, and an unserialized second save would
	// overwrite the first (lost update).
	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// sysMu serializes registry and recents blob rewrites.
	sysMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultWorkspace overrides the protected default workspace name.
func WithDefaultWorkspace(name string) Option {
	return func(s *Service) { s.defaultWS = name }
}

// WithRecentsLimit caps the recents ledger length.
func WithRecentsLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.recentsLimit = n
		}
	}
}

// WithNotify installs a change event hook (SSE broker, tests).
func WithNotify(fn NotifyFunc) Option {
	return func(s *Service) { s.notify = fn }
}

// NewService creates the service and ensures the default workspace exists.
func NewService(ctx context.Context, backend storage.Backend, logger *slog.Logger, opts ...Option) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		backend:      backend,
		logger:       logger,
		defaultWS:    DefaultWorkspace,
		recentsLimit: defaultRecentsLimit,
		locks:        make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}

	reg, err := s.loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	if !contains(reg.Workspaces, s.defaultWS) {
		reg.Workspaces = append(reg.Workspaces, s.defaultWS)
		if err := index.Save(ctx, backend, s.defaultWS, nil); err != nil {
			return nil, err
		}
	}
	if reg.Active == "" || !contains(reg.Workspaces, reg.Active) {
		reg.Active = s.defaultWS
	}
	if err := s.saveRegistry(ctx, reg); err != nil {
		return nil, err
	}
	return s, nil
}

// Backend exposes the selected backend for diagnostics and the watcher.
func (s *Service) Backend() storage.Backend { return s.backend }

func (s *Service) emit(kind, workspace, path string) {
	if s.notify != nil {
		s.notify(kind, workspace, path)
	}
}

// wsLock returns the mutex serializing index mutations for one workspace.
func (s *Service) wsLock(workspace string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lk, ok := s.locks[workspace]
	if !ok {
		lk = &sync.Mutex{}
		s.locks[workspace] = lk
	}
	return lk
}

type registry struct {
	Workspaces []string `json:"workspaces"`
	Active     string   `json:"active"`
}

func (s *Service) loadRegistry(ctx context.Context) (*registry, error) {
	data, err := s.backend.Get(ctx, sysNamespace, registryKey)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return &registry{}, nil
		}
		return nil, fmt.Errorf("workspace: load registry: %w", err)
	}
	var reg registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("workspace: decode registry: %w", err)
	}
	return &reg, nil
}

func (s *Service) saveRegistry(ctx context.Context, reg *registry) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("workspace: encode registry: %w", err)
	}
	if err := s.backend.Put(ctx, sysNamespace, registryKey, data); err != nil {
		return fmt.Errorf("workspace: save registry: %w", err)
	}
	return nil
}

// Workspaces returns the registered workspace names and the active one.
func (s *Service) Workspaces(ctx context.Context) ([]string, string, error) {
	s.sysMu.Lock()
	defer s.sysMu.Unlock()
	reg, err := s.loadRegistry(ctx)
	if err != nil {
		return nil, "", err
	}
	return reg.Workspaces, reg.Active, nil
}

// ActiveWorkspace returns the persisted active workspace name.
func (s *Service) ActiveWorkspace(ctx context.Context) (string, error) {
	_, active, err := s.Workspaces(ctx)
	return active, err
}

// CreateWorkspace registers a new workspace and initializes its empty index,
// so a registered name always implies an index exists.
func (s *Service) CreateWorkspace(ctx context.Context, name string) error {
	if err := validateWorkspaceName(name); err != nil {
		return err
	}
	s.sysMu.Lock()
	defer s.sysMu.Unlock()

	reg, err := s.loadRegistry(ctx)
	if err != nil {
		return err
	}
	if contains(reg.Workspaces, name) {
		return fmt.Errorf("workspace %q: %w", name, apperr.ErrAlreadyExists)
	}
	if err := index.Save(ctx, s.backend, name, nil); err != nil {
		return err
	}
	reg.Workspaces = append(reg.Workspaces, name)
	if err := s.saveRegistry(ctx, reg); err != nil {
		return err
	}
	s.emit("workspace.changed", name, "")
	return nil
}

// SwitchWorkspace moves the persisted active pointer. Pure state change.
func (s *Service) SwitchWorkspace(ctx context.Context, name string) error {
	s.sysMu.Lock()
	defer s.sysMu.Unlock()

	reg, err := s.loadRegistry(ctx)
	if err != nil {
		return err
	}
	if !contains(reg.Workspaces, name) {
		return fmt.Errorf("workspace %q: %w", name, apperr.ErrNoWorkspace)
	}
	reg.Active = name
	return s.saveRegistry(ctx, reg)
}

// DeleteWorkspace removes a workspace, its index, and every content entry in
// its namespace. The default workspace is protected.
func (s *Service) DeleteWorkspace(ctx context.Context, name string) error {
	if name == s.defaultWS {
		return apperr.ErrDefaultWorkspace
	}

	lk := s.wsLock(name)
	lk.Lock()
	defer lk.Unlock()
	s.sysMu.Lock()
	defer s.sysMu.Unlock()

	reg, err := s.loadRegistry(ctx)
	if err != nil {
		return err
	}
	if !contains(reg.Workspaces, name) {
		return fmt.Errorf("workspace %q: %w", name, apperr.ErrNoWorkspace)
	}
	if err := s.backend.Drop(ctx, name); err != nil {
		return err
	}
	reg.Workspaces = remove(reg.Workspaces, name)
	if reg.Active == name {
		reg.Active = s.defaultWS
	}
	if err := s.saveRegistry(ctx, reg); err != nil {
		return err
	}
	if err := s.dropRecentsLocked(ctx, func(e RecentEntry) bool { return e.Workspace == name }); err != nil {
		s.logger.Warn("workspace: prune recents failed",
			slog.String("workspace", name), slog.String("error", err.Error()))
	}
	s.emit("workspace.changed", name, "")
	return nil
}

// ensureWorkspace verifies the workspace is registered.
func (s *Service) ensureWorkspace(ctx context.Context, name string) error {
	s.sysMu.Lock()
	defer s.sysMu.Unlock()
	reg, err := s.loadRegistry(ctx)
	if err != nil {
		return err
	}
	if !contains(reg.Workspaces, name) {
		return fmt.Errorf("workspace %q: %w", name, apperr.ErrNoWorkspace)
	}
	return nil
}

// StorageInfo reports the backend and per-workspace totals.
type StorageInfo struct {
	Backend   string `json:"backend"`
	Workspace string `json:"workspace"`
	Files     int    `json:"files"`
	Folders   int    `json:"folders"`
	Bytes     int64  `json:"bytes"`
	Used      int64  `json:"used"`
	Quota     int64  `json:"quota,omitempty"`
}

// Info returns storage diagnostics for one workspace.
func (s *Service) Info(ctx context.Context, workspace string) (*StorageInfo, error) {
	if err := s.ensureWorkspace(ctx, workspace); err != nil {
		return nil, err
	}
	records, err := index.Load(ctx, s.backend, workspace)
	if err != nil {
		return nil, err
	}
	info := &StorageInfo{
		Backend:   s.backend.Name(),
		Workspace: workspace,
		Folders:   len(folderSet(records)),
		Quota:     s.backend.Quota(),
	}
	for _, r := range records {
		if r.IsFolder {
			continue
		}
		info.Files++
		info.Bytes += r.Size
	}
	used, err := s.backend.Usage(ctx)
	if err != nil {
		return nil, err
	}
	info.Used = used
	return info, nil
}

func validateWorkspaceName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("workspace: name is required")
	case len(name) > 64:
		return fmt.Errorf("workspace: name too long")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("workspace: name must not contain path separators")
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("workspace: name must not start with a dot")
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
