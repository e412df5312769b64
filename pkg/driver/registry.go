package driver

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/openpnp-go/controller/pkg/config"
	customlog "github.com/openpnp-go/controller/pkg/log"
)

// Factory builds a backend from its configuration.
type Factory func(cfg config.DriverConfig, logger customlog.Logger) (Driver, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

func init() {
	Register(NullBackend, newNullFromConfig)
	Register("reference", newNullFromConfig)
}

// Register makes a backend available to New under name. Registering the same
// name twice replaces the earlier factory.
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Backends lists the registered backend names.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the backend named by cfg.Type. A positive CommandTimeoutMs wraps
// it with Supervise.
func New(cfg config.DriverConfig, logger customlog.Logger) (Driver, error) {
	name := cfg.Type
	if name == "" {
		name = NullBackend
	}

	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownBackend, name, Backends())
	}

	d, err := factory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s driver: %w", name, err)
	}
	logger.Infof("Driver backend %q created (id=%q)", name, cfg.ID)

	if cfg.CommandTimeoutMs > 0 {
		d = Supervise(d, time.Duration(cfg.CommandTimeoutMs)*time.Millisecond)
	}
	return d, nil
}
