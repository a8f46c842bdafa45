package backend

import (
	"fmt"

	"go.uber.org/zap"

	"ledgerlens/internal/config"
	"ledgerlens/internal/port"
)

// ProviderFactory creates a ModelBackend from a provider config.
type ProviderFactory func(cfg *config.BackendConfig, logger *zap.Logger) (port.ModelBackend, error)

// registry of backend provider factories, populated by init() in each provider
// package or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a backend provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// New creates a ModelBackend from a provider config using the registered factory.
func New(cfg *config.BackendConfig, logger *zap.Logger) (port.ModelBackend, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown backend provider: %s", cfg.Provider)
	}
	return factory(cfg, logger)
}

// NewFallbackList builds the ordered backend list from configuration. Order of
// the config slice is priority order.
func NewFallbackList(cfgs []config.BackendConfig, logger *zap.Logger) ([]port.ModelBackend, error) {
	backends := make([]port.ModelBackend, 0, len(cfgs))
	for i := range cfgs {
		b, err := New(&cfgs[i], logger)
		if err != nil {
			return nil, fmt.Errorf("backend %d (%s): %w", i, cfgs[i].Provider, err)
		}
		backends = append(backends, b)
	}
	return backends, nil
}
