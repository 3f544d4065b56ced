package backend

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/gogpu/camquad"
	"github.com/gogpu/camquad/internal/fakegpu"
)

// fakeHost is the only host the test factories accept.
type fakeHost struct{}

func fakeFactory(host any) (camquad.Backend, error) {
	if _, ok := host.(fakeHost); !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedHost, host)
	}
	return fakegpu.New(), nil
}

func register(t *testing.T, name string, f Factory) {
	t.Helper()
	Register(name, f)
	t.Cleanup(func() { Unregister(name) })
}

func TestRegistryRegisterAndGet(t *testing.T) {
	register(t, "fake", fakeFactory)

	if !IsRegistered("fake") {
		t.Fatal("fake backend should be registered")
	}
	b, err := Get("fake", fakeHost{})
	if err != nil {
		t.Fatalf("Get(fake) error = %v", err)
	}
	if b.Name() != "fake" {
		t.Errorf("Get(fake).Name() = %q, want %q", b.Name(), "fake")
	}
}

func TestRegistryGetUnregistered(t *testing.T) {
	b, err := Get("nonexistent", nil)
	if b != nil {
		t.Error("Get(nonexistent) should return nil")
	}
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Get(nonexistent) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegistryGetWrongHost(t *testing.T) {
	register(t, "fake", fakeFactory)

	_, err := Get("fake", 42)
	if !errors.Is(err, ErrUnsupportedHost) {
		t.Errorf("Get(fake, 42) error = %v, want ErrUnsupportedHost", err)
	}
}

func TestRegistryAvailable(t *testing.T) {
	register(t, "zz-fake", fakeFactory)
	register(t, "aa-fake", fakeFactory)

	available := Available()
	if !slices.IsSorted(available) {
		t.Errorf("Available() = %v, want sorted", available)
	}
	for _, name := range []string{"aa-fake", "zz-fake"} {
		if !slices.Contains(available, name) {
			t.Errorf("Available() should include %q", name)
		}
	}
}

func TestRegistryDefaultPriority(t *testing.T) {
	var tried []string
	tracking := func(name string, accept bool) Factory {
		return func(host any) (camquad.Backend, error) {
			tried = append(tried, name)
			if !accept {
				return nil, ErrUnsupportedHost
			}
			return fakegpu.New(), nil
		}
	}
	register(t, BackendGLES, tracking(BackendGLES, true))
	register(t, BackendWGPU, tracking(BackendWGPU, false))

	b, err := Default(nil)
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if b == nil {
		t.Fatal("Default() returned nil")
	}
	if len(tried) < 2 || tried[0] != BackendWGPU || tried[1] != BackendGLES {
		t.Errorf("factories tried in order %v, want wgpu then gles", tried)
	}
}

func TestRegistryDefaultNoneAccept(t *testing.T) {
	register(t, BackendWGPU, fakeFactory)
	register(t, BackendGLES, fakeFactory)

	_, err := Default("not a host")
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Default() error = %v, want ErrBackendNotAvailable", err)
	}
	if !errors.Is(err, ErrUnsupportedHost) {
		t.Errorf("Default() error = %v, want wrapped ErrUnsupportedHost", err)
	}
}

func TestRegistryMustDefault(t *testing.T) {
	register(t, "fake", fakeFactory)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("MustDefault() panicked: %v", r)
		}
	}()
	if b := MustDefault(fakeHost{}); b == nil {
		t.Error("MustDefault() returned nil")
	}
}

func TestRegistryMustDefaultPanics(t *testing.T) {
	for _, name := range Available() {
		f := backends[name]
		Unregister(name)
		t.Cleanup(func() { Register(name, f) })
	}

	defer func() {
		if recover() == nil {
			t.Error("MustDefault() did not panic without backends")
		}
	}()
	MustDefault(nil)
}

func TestRegistryUnregister(t *testing.T) {
	Register("test-backend", fakeFactory)

	if !IsRegistered("test-backend") {
		t.Error("test-backend should be registered")
	}

	Unregister("test-backend")

	if IsRegistered("test-backend") {
		t.Error("test-backend should be unregistered")
	}
}
