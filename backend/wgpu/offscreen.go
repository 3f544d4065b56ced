package wgpu

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// copyPitchAlignment is the required BytesPerRow alignment for
// texture-to-buffer copies.
const copyPitchAlignment = 256

// NewOffscreen opens a device on api and renders into an owned RGBA8
// texture of the given size. After every FinishFrame the frame is read back
// and available from Pixels.
func NewOffscreen(api hal.Backend, width, height int) (*Backend, error) {
	if err := checkTextureSize(width, height); err != nil {
		return nil, err
	}
	owned, queue, err := openDevice(api)
	if err != nil {
		return nil, err
	}

	b := New(owned.device, queue, gputypes.TextureFormatRGBA8Unorm)
	b.owned = owned
	b.offscreen = &offscreenTarget{}
	if err := b.resizeOffscreen(width, height); err != nil {
		b.Release()
		return nil, err
	}
	b.log().Info("wgpu: offscreen backend ready", "gpu", owned.info.String(), "width", width, "height", height)
	return b, nil
}

// resizeOffscreen recreates the offscreen texture when the size changes.
func (b *Backend) resizeOffscreen(width, height int) error {
	off := b.offscreen
	if off == nil || width <= 0 || height <= 0 {
		return nil
	}
	if off.tex != nil && off.width == width && off.height == height {
		return nil
	}
	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "camquad_offscreen",
		Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create offscreen texture: %w", err)
	}
	view, err := b.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "camquad_offscreen_view",
	})
	if err != nil {
		b.device.DestroyTexture(tex)
		return fmt.Errorf("wgpu: create offscreen view: %w", err)
	}
	if off.tex != nil {
		b.frame.retainTexture(b.device, &textureObject{tex: off.tex, view: off.view})
	}
	off.tex, off.view = tex, view
	off.width, off.height = width, height
	return nil
}

func (b *Backend) destroyOffscreen() {
	if b.offscreen == nil {
		return
	}
	destroyTexture(b.device, &textureObject{tex: b.offscreen.tex, view: b.offscreen.view})
	b.offscreen = nil
}

// OffscreenSize returns the size of the owned target, or zero when the
// backend renders only into caller views.
func (b *Backend) OffscreenSize() (int, int) {
	if b.offscreen == nil {
		return 0, 0
	}
	return b.offscreen.width, b.offscreen.height
}

// Pixels returns the last offscreen frame read back by FinishFrame, or nil
// before the first one.
func (b *Backend) Pixels() *image.RGBA {
	if b.offscreen == nil {
		return nil
	}
	return b.offscreen.pixels
}

// encodeReadback copies the offscreen texture into a mappable staging
// buffer. Rows are padded to copyPitchAlignment.
func (b *Backend) encodeReadback(encoder hal.CommandEncoder, off *offscreenTarget) (hal.Buffer, uint32, error) {
	w, h := uint32(off.width), uint32(off.height)
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)

	staging, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "camquad_staging",
		Size:  uint64(alignedBytesPerRow) * uint64(h),
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("create staging buffer: %w", err)
	}

	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: off.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(off.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase:  hal.ImageCopyTexture{Texture: off.tex, MipLevel: 0},
		Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: off.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageCopySrc,
			NewUsage: gputypes.TextureUsageRenderAttachment,
		},
	}})
	return staging, alignedBytesPerRow, nil
}

// readback strips the row padding from the staging buffer into
// off.pixels.
func (b *Backend) readback(staging hal.Buffer, alignedBytesPerRow uint32, off *offscreenTarget) error {
	w, h := off.width, off.height
	data := make([]byte, int(alignedBytesPerRow)*h)
	if err := b.queue.ReadBuffer(staging, 0, data); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for row := range h {
		src := data[row*int(alignedBytesPerRow):]
		copy(img.Pix[row*img.Stride:row*img.Stride+w*4], src[:w*4])
	}
	off.pixels = img
	return nil
}
