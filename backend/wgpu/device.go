package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoAdapter is returned by NewOffscreen when the HAL backend exposes no
// adapter.
var ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

// GPUInfo contains information about the selected GPU.
type GPUInfo struct {
	// Name is the GPU name (e.g., "NVIDIA GeForce RTX 3080").
	Name string
	// Vendor is the GPU vendor.
	Vendor string
	// DeviceType is the type of GPU (discrete, integrated, etc.).
	DeviceType gputypes.DeviceType
	// Driver is the driver version string.
	Driver string
}

// String returns a human-readable description of the GPU.
func (g GPUInfo) String() string {
	return fmt.Sprintf("%s (%v)", g.Name, g.DeviceType)
}

// ownedDevice is a device the backend opened itself and must destroy.
type ownedDevice struct {
	instance hal.Instance
	device   hal.Device
	info     GPUInfo
}

func (o *ownedDevice) destroy() {
	if o.device != nil {
		o.device.Destroy()
	}
	if o.instance != nil {
		o.instance.Destroy()
	}
}

// selectAdapter prefers discrete and integrated GPUs over software and
// other adapters.
func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return &adapters[i]
		}
	}
	return &adapters[0]
}

// openDevice creates an instance on api and opens a device with default
// limits on the preferred adapter.
func openDevice(api hal.Backend) (*ownedDevice, hal.Queue, error) {
	instance, err := api.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, ErrNoAdapter
	}
	selected := selectAdapter(adapters)
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("wgpu: open device: %w", err)
	}
	owned := &ownedDevice{
		instance: instance,
		device:   openDev.Device,
		info: GPUInfo{
			Name:       selected.Info.Name,
			Vendor:     selected.Info.Vendor,
			DeviceType: selected.Info.DeviceType,
			Driver:     selected.Info.Driver,
		},
	}
	return owned, openDev.Queue, nil
}

// checkTextureSize verifies that a width x height texture fits the default
// limits devices are opened with.
func checkTextureSize(width, height int) error {
	limit := int(gputypes.DefaultLimits().MaxTextureDimension2D)
	if width <= 0 || height <= 0 || width > limit || height > limit {
		return fmt.Errorf("wgpu: texture size %dx%d outside 1..%d", width, height, limit)
	}
	return nil
}

// GPU returns the adapter the backend opened, or false when the device was
// supplied by the caller.
func (b *Backend) GPU() (GPUInfo, bool) {
	if b.owned == nil {
		return GPUInfo{}, false
	}
	return b.owned.info, true
}
