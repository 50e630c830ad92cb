package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Info summarizes a profile found in the config directory
type Info struct {
	Filename    string   `json:"filename"`
	ConfigID    string   `json:"config_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Metrics     []string `json:"metrics"`
}

// Manager handles profile loading and caching for one directory
type Manager struct {
	configDir     string
	defaultConfig *Config
	defaultErr    error
	configs       map[string]*Config
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	// Ensure config directory exists
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*Config),
	}

	config, err := m.LoadConfig("default")
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			m.defaultErr = err
		}
		config = Default()
	}
	m.defaultConfig = config

	return m, nil
}

// Dir returns the managed directory.
func (m *Manager) Dir() string {
	return m.configDir
}

// LoadConfig loads a profile by name, with or without its extension
func (m *Manager) LoadConfig(name string) (*Config, error) {
	id := profileID(name)

	m.mu.RLock()
	// Check cache first
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	path, err := m.findProfile(id)
	if err != nil {
		return nil, err
	}

	config, err := Load(path)
	if err != nil {
		return nil, err
	}

	m.configs[id] = config
	return config, nil
}

// ListConfigs returns information about every valid profile, sorted by file name
func (m *Manager) ListConfigs() ([]*Info, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var infos []*Info
	for _, entry := range entries {
		if entry.IsDir() || !isProfileFile(entry.Name()) {
			continue
		}

		id := profileID(entry.Name())
		config, err := m.LoadConfig(id)
		if err != nil {
			// Skip invalid profiles
			continue
		}

		infos = append(infos, &Info{
			Filename:    entry.Name(),
			ConfigID:    id,
			Name:        config.Name,
			Description: config.Description,
			Metrics:     config.Metrics,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Filename < infos[j].Filename })
	return infos, nil
}

// GetDefault returns the "default" profile, or the built-in one when the
// directory has none
func (m *Manager) GetDefault() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// DefaultErr returns why a "default" profile present in the directory could
// not be used, or nil.
func (m *Manager) DefaultErr() error {
	return m.defaultErr
}

// SaveConfig validates a profile and writes it as YAML
func (m *Manager) SaveConfig(name string, config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	id := profileID(name)
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(m.configDir, id+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()

	return nil
}

// RefreshCache drops every cached profile
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs = make(map[string]*Config)
}

func (m *Manager) findProfile(id string) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(m.configDir, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrConfigNotFound, id)
}

func isProfileFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func profileID(name string) string {
	return strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
}
