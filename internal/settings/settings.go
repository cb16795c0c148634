// Package settings stores bot settings such as the OpenWeatherMap API key.
// Values live in a pluggable Store; a Manager layers definitions, defaults
// and validation on top.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/NomadCrew/oweather-bot/logger"
	"go.uber.org/zap"
)

var (
	ErrSettingNotFound = errors.New("setting not found")
	ErrUnknownSetting  = errors.New("unknown setting")
	ErrInvalidValue    = errors.New("invalid setting value")
)

// Store persists raw setting values by name. Get returns ErrSettingNotFound
// when nothing has been stored yet.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	Ping(ctx context.Context) error
	Close() error
}

// Definition describes a setting a component relies on.
type Definition struct {
	Name        string
	Description string
	Default     string
	// AccessLevel is the minimum level allowed to change the value.
	AccessLevel AccessLevel
	// Sensitive values are masked in logs and API responses.
	Sensitive bool
	Validate  func(value string) error
}

// Manager resolves registered settings against a Store.
type Manager struct {
	store Store
	log   *zap.SugaredLogger

	mu   sync.RWMutex
	defs map[string]Definition
}

func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		log:   logger.GetLogger().Named("settings"),
		defs:  make(map[string]Definition),
	}
}

// Register adds a definition. Names are unique.
func (m *Manager) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownSetting)
	}
	if def.AccessLevel == "" {
		def.AccessLevel = AccessMod
	}
	if _, err := ParseAccessLevel(string(def.AccessLevel)); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.defs[def.Name]; exists {
		return fmt.Errorf("setting %q already registered", def.Name)
	}
	m.defs[def.Name] = def
	return nil
}

// Definition returns the registered definition for name.
func (m *Manager) Definition(name string) (Definition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.defs[name]
	return def, ok
}

// Definitions lists all registered settings ordered by name.
func (m *Manager) Definitions() []Definition {
	m.mu.RLock()
	defs := make([]Definition, 0, len(m.defs))
	for _, def := range m.defs {
		defs = append(defs, def)
	}
	m.mu.RUnlock()

	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Get returns the stored value, or the definition's default when none is stored.
func (m *Manager) Get(ctx context.Context, name string) (string, error) {
	def, ok := m.Definition(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}

	value, err := m.store.Get(ctx, name)
	if errors.Is(err, ErrSettingNotFound) {
		return def.Default, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", name, err)
	}
	return value, nil
}

// Set validates and stores value.
func (m *Manager) Set(ctx context.Context, name, value string) error {
	def, ok := m.Definition(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}
	if def.Validate != nil {
		if err := def.Validate(value); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, name, err)
		}
	}

	if err := m.store.Set(ctx, name, value); err != nil {
		return fmt.Errorf("writing setting %s: %w", name, err)
	}
	m.log.Infow("Setting updated", "name", name, "value", m.Display(def, value))
	return nil
}

// Seed stores value only when nothing is stored for name yet. It reports
// whether the value was written.
func (m *Manager) Seed(ctx context.Context, name, value string) (bool, error) {
	if _, ok := m.Definition(name); !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownSetting, name)
	}

	_, err := m.store.Get(ctx, name)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrSettingNotFound):
		return false, fmt.Errorf("reading setting %s: %w", name, err)
	}
	if err := m.Set(ctx, name, value); err != nil {
		return false, err
	}
	return true, nil
}

// Display renders value for logs and API responses.
func (m *Manager) Display(def Definition, value string) string {
	if def.Sensitive {
		return logger.MaskAPIKey(value)
	}
	return value
}

// Ping checks the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

// Close releases the backing store.
func (m *Manager) Close() error {
	return m.store.Close()
}
