package config

import "sync"

// Holder wraps a Config for safe concurrent access and hot reload.
// Reload re-runs the full load pipeline against the original YAML path;
// if the new config fails validation, the old one is kept.
type Holder struct {
	mu       sync.RWMutex
	cfg      *Config
	yamlPath string
}

// NewHolder returns a Holder seeded with cfg loaded from yamlPath.
func NewHolder(cfg *Config, yamlPath string) *Holder {
	return &Holder{cfg: cfg, yamlPath: yamlPath}
}

// Get returns the current config snapshot.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Reload reloads configuration from the original YAML path. On error the
// previous config remains active.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.yamlPath)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	return nil
}
