package scenario

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Store loads scenario artifacts from a directory and caches them for
// the process lifetime. Loading is load-or-generate: a missing or
// unparsable artifact degrades to a generated fallback chain instead
// of blocking the engine.
type Store struct {
	dir    string
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]*Scenario
}

// NewStore creates a scenario store reading {category}.json artifacts
// from dir. An empty dir makes every load fall through to the
// generator.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dir:    strings.TrimSpace(dir),
		logger: logger,
		cache:  make(map[string]*Scenario),
	}
}

// Load returns the scenario for a category. The result is cached and
// read-only; callers must not mutate it.
func (s *Store) Load(category string) *Scenario {
	category = strings.TrimSpace(category)

	s.mu.RLock()
	if cached, ok := s.cache[category]; ok {
		s.mu.RUnlock()
		return cached
	}
	s.mu.RUnlock()

	scen, err := s.read(category)
	if err != nil {
		s.logger.Warn("scenario artifact unusable, generating fallback chain",
			zap.String("category", category),
			zap.Error(err),
		)
		scen = Generate(category)
	}

	s.mu.Lock()
	s.cache[category] = scen
	s.mu.Unlock()

	return scen
}

func (s *Store) read(category string) (*Scenario, error) {
	if s.dir == "" {
		return nil, fmt.Errorf("scenario directory is not configured")
	}
	if category == "" {
		return nil, fmt.Errorf("category is empty")
	}

	path := filepath.Join(s.dir, category+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario artifact: %w", err)
	}

	var scen Scenario
	if err := json.Unmarshal(data, &scen); err != nil {
		return nil, fmt.Errorf("parsing scenario artifact %q: %w", path, err)
	}

	if err := scen.Validate(); err != nil {
		return nil, fmt.Errorf("validating scenario %q: %w", path, err)
	}

	return &scen, nil
}
