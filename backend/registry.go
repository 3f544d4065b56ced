package backend

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/camquad"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first that accepts the host wins).
	// WGPU > GLES (the WebGPU HAL validates more and runs headless).
	backendPriority = []string{BackendWGPU, BackendGLES}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return sortedNames()
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get creates the named backend for host.
func Get(name string, host any) (camquad.Backend, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	b, err := factory(host)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return b, nil
}

// Default returns the first backend, in priority order, whose factory
// accepts host. Backends outside the priority list are tried last in name
// order.
func Default(host any) (camquad.Backend, error) {
	registryMu.RLock()
	order := slices.Clone(backendPriority)
	for _, name := range sortedNames() {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	factories := make([]Factory, 0, len(order))
	names := make([]string, 0, len(order))
	for _, name := range order {
		if f, ok := backends[name]; ok {
			factories = append(factories, f)
			names = append(names, name)
		}
	}
	registryMu.RUnlock()

	var errs []error
	for i, f := range factories {
		b, err := f(host)
		if err == nil && b != nil {
			camquad.Logger().Debug("backend: selected", "name", names[i])
			return b, nil
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", names[i], err))
		}
	}
	if len(errs) == 0 {
		return nil, ErrBackendNotAvailable
	}
	return nil, fmt.Errorf("%w: %w", ErrBackendNotAvailable, errors.Join(errs...))
}

// MustDefault returns the default backend for host or panics.
func MustDefault(host any) camquad.Backend {
	b, err := Default(host)
	if err != nil {
		panic(err)
	}
	return b
}

// sortedNames must be called with registryMu held.
func sortedNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
