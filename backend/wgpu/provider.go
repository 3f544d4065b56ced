package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camquad"
	"github.com/gogpu/camquad/backend"
)

// ErrNoHALAccess is returned by NewFromProvider when the provider does not
// expose its HAL device and queue.
var ErrNoHALAccess = errors.New("wgpu: provider does not expose HAL types")

// halProvider is implemented by hosts (such as gogpu) that share their
// device with libraries.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Host bundles an existing device and queue for the registry factory.
type Host struct {
	Device hal.Device
	Queue  hal.Queue
	Format gputypes.TextureFormat
}

func init() {
	backend.Register(Name, func(host any) (camquad.Backend, error) {
		switch h := host.(type) {
		case gpucontext.DeviceProvider:
			return NewFromProvider(h)
		case Host:
			if h.Device == nil || h.Queue == nil {
				return nil, fmt.Errorf("%w: wgpu.Host without device or queue", backend.ErrUnsupportedHost)
			}
			return New(h.Device, h.Queue, h.Format), nil
		case hal.Backend:
			return NewOffscreen(h, 1, 1)
		default:
			return nil, fmt.Errorf("%w: want gpucontext.DeviceProvider, wgpu.Host or hal.Backend, got %T",
				backend.ErrUnsupportedHost, host)
		}
	})
}

// NewFromProvider shares the device of a host window. Frames render into
// the view passed to SetTarget, in the provider's surface format.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Backend, error) {
	if provider == nil {
		return nil, ErrNoHALAccess
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALAccess
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALAccess)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALAccess)
	}
	return New(device, queue, provider.SurfaceFormat()), nil
}
