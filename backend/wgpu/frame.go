package wgpu

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camquad"
)

// ErrNoTarget is returned by FinishFrame when a cleared frame has neither a
// caller view nor an offscreen texture to render into.
var ErrNoTarget = errors.New("wgpu: no render target")

// ErrGPUTimeout is returned by FinishFrame when the GPU does not finish the
// frame within the wait timeout.
var ErrGPUTimeout = errors.New("wgpu: timed out waiting for GPU")

// gpuWaitTimeout bounds the fence wait at the end of each frame.
const gpuWaitTimeout = 5 * time.Second

// renderTarget is a caller-owned view, typically the current swapchain
// image.
type renderTarget struct {
	view          hal.TextureView
	width, height int
}

func (t renderTarget) external() bool { return t.view != nil }

// offscreenTarget is a backend-owned color texture that is read back after
// every submitted frame.
type offscreenTarget struct {
	tex           hal.Texture
	view          hal.TextureView
	width, height int
	pixels        *image.RGBA
}

// frameState collects everything recorded since the last FinishFrame.
type frameState struct {
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder

	clear bool
	draws int

	bindGroups []hal.BindGroup
	buffers    []hal.Buffer
	textures   []*textureObject
}

// retainBuffer defers destruction of buf until the frame is submitted.
func (f *frameState) retainBuffer(device hal.Device, buf hal.Buffer) {
	if f.encoder == nil {
		device.DestroyBuffer(buf)
		return
	}
	f.buffers = append(f.buffers, buf)
}

func (f *frameState) retainTexture(device hal.Device, t *textureObject) {
	if f.encoder == nil {
		destroyTexture(device, t)
		return
	}
	f.textures = append(f.textures, t)
}

func (f *frameState) release(device hal.Device) {
	for _, bg := range f.bindGroups {
		device.DestroyBindGroup(bg)
	}
	for _, buf := range f.buffers {
		device.DestroyBuffer(buf)
	}
	for _, t := range f.textures {
		destroyTexture(device, t)
	}
	*f = frameState{}
}

func destroyTexture(device hal.Device, t *textureObject) {
	if t.view != nil {
		device.DestroyTextureView(t.view)
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
	}
}

// SetTarget renders subsequent frames into view, which the caller keeps
// owning. A nil view returns to the offscreen target, if any.
func (b *Backend) SetTarget(view hal.TextureView, width, height int) {
	b.target = renderTarget{view: view, width: width, height: height}
}

// Target returns the current caller-owned view and its size.
func (b *Backend) Target() (hal.TextureView, int, int) {
	return b.target.view, b.target.width, b.target.height
}

func (b *Backend) targetFormat() gputypes.TextureFormat {
	if !b.target.external() && b.offscreen != nil {
		return gputypes.TextureFormatRGBA8Unorm
	}
	return b.format
}

func (b *Backend) targetView() hal.TextureView {
	if b.target.external() {
		return b.target.view
	}
	if b.offscreen != nil {
		return b.offscreen.view
	}
	return nil
}

// Clear marks the color target for clearing at the start of the next pass.
// A pass that is already open is ended so the clear takes effect in order.
// Depth is ignored; targets carry no depth attachment.
func (b *Backend) Clear(color, _ bool) {
	if !color {
		return
	}
	if b.frame.pass != nil {
		b.frame.pass.End()
		b.frame.pass = nil
	}
	b.frame.clear = true
}

// beginPass opens the frame's command encoder and render pass if needed.
func (b *Backend) beginPass() (hal.RenderPassEncoder, error) {
	if b.frame.pass != nil {
		return b.frame.pass, nil
	}
	view := b.targetView()
	if view == nil {
		return nil, ErrNoTarget
	}
	if b.frame.encoder == nil {
		encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
			Label: "camquad_encoder",
		})
		if err != nil {
			return nil, fmt.Errorf("create command encoder: %w", err)
		}
		if err := encoder.BeginEncoding("camquad_frame"); err != nil {
			return nil, fmt.Errorf("begin encoding: %w", err)
		}
		b.frame.encoder = encoder
	}
	load := gputypes.LoadOpLoad
	if b.frame.clear {
		load = gputypes.LoadOpClear
		b.frame.clear = false
	}
	rp := b.frame.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "camquad_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: b.clearColor,
		}},
	})
	b.applyViewport(rp)
	b.frame.pass = rp
	return rp, nil
}

func (b *Backend) DrawArrays(first, count int) {
	if first < 0 || count <= 0 {
		return
	}
	b.draw(nil, first, count)
}

func (b *Backend) DrawElements(buf camquad.Buffer, count int) {
	obj := b.buffers[buf]
	if obj == nil || obj.kind != camquad.BufferIndex || count <= 0 {
		return
	}
	b.draw(obj.buf, 0, count)
}

func (b *Backend) draw(index hal.Buffer, first, count int) {
	prog := b.programs[b.current]
	if prog == nil || !prog.linked {
		b.log().Debug("wgpu: draw without a linked program")
		return
	}
	layouts, bufs, key, err := b.vertexInputs(prog)
	if err != nil {
		b.log().Debug("wgpu: draw skipped", "err", err)
		return
	}
	pipe, err := b.pipeline(prog, fmt.Sprintf("%s%d", key, b.targetFormat()), layouts)
	if err != nil {
		b.log().Warn("wgpu: draw skipped", "err", err)
		return
	}
	rp, err := b.beginPass()
	if err != nil {
		b.log().Warn("wgpu: draw skipped", "err", err)
		return
	}
	bg, err := b.bindGroup(prog)
	if err != nil {
		b.log().Warn("wgpu: draw skipped", "err", err)
		return
	}

	rp.SetPipeline(pipe)
	if bg != nil {
		rp.SetBindGroup(0, bg, nil)
	}
	for i, buf := range bufs {
		rp.SetVertexBuffer(uint32(i), buf, 0)
	}
	if index != nil {
		rp.SetIndexBuffer(index, gputypes.IndexFormatUint16, 0)
		rp.DrawIndexed(uint32(count), 1, 0, 0, 0)
	} else {
		rp.Draw(uint32(count), 1, uint32(first), 0)
	}
	b.frame.draws++
}

// Draws returns the number of draws recorded in the current frame.
func (b *Backend) Draws() int { return b.frame.draws }

// FinishFrame ends the open render pass, submits the frame and waits for
// the GPU. A pending clear with no draws still produces a pass. Offscreen
// frames are read back and available from Pixels afterwards.
func (b *Backend) FinishFrame() error {
	if b.frame.encoder == nil && !b.frame.clear {
		return nil
	}
	if b.frame.pass == nil && b.frame.clear {
		if _, err := b.beginPass(); err != nil {
			b.frame.clear = false
			return err
		}
	}
	defer b.frame.release(b.device)

	if b.frame.pass != nil {
		b.frame.pass.End()
		b.frame.pass = nil
	}
	encoder := b.frame.encoder

	var staging hal.Buffer
	var alignedBytesPerRow uint32
	off := b.offscreen
	if b.target.external() {
		off = nil
	}
	if off != nil {
		var err error
		staging, alignedBytesPerRow, err = b.encodeReadback(encoder, off)
		if err != nil {
			encoder.DiscardEncoding()
			return err
		}
		defer b.device.DestroyBuffer(staging)
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := waitResult(b.device.Wait(fence, 1, gpuWaitTimeout)); err != nil {
		return err
	}

	if off != nil {
		return b.readback(staging, alignedBytesPerRow, off)
	}
	return nil
}

// waitResult maps a fence wait to an error.
func waitResult(signaled bool, err error) error {
	switch {
	case err != nil:
		return fmt.Errorf("wait for GPU: %w", err)
	case !signaled:
		return fmt.Errorf("%w after %v", ErrGPUTimeout, gpuWaitTimeout)
	}
	return nil
}

// discardFrame drops anything recorded since the last FinishFrame.
func (b *Backend) discardFrame() {
	if b.frame.pass != nil {
		b.frame.pass.End()
	}
	if b.frame.encoder != nil {
		b.frame.encoder.DiscardEncoding()
	}
	b.frame.release(b.device)
}
