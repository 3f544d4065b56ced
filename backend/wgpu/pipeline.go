package wgpu

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camquad"
)

// LinkProgram checks that the attached stages fit together and builds the
// bind group and pipeline layouts. Render pipelines depend on the vertex
// buffer layout and are created at the first draw that uses them.
func (b *Backend) LinkProgram(p camquad.Program) {
	prog := b.programs[p]
	if prog == nil {
		return
	}
	b.destroyLinkState(prog)
	prog.linked = false
	prog.log = ""

	if err := b.link(prog); err != nil {
		prog.log = err.Error()
		b.destroyLinkState(prog)
		return
	}
	prog.linked = true
}

func (b *Backend) link(prog *programObject) error {
	prog.vertex, prog.fragment = nil, nil
	for _, obj := range prog.shaders {
		if !obj.compiled {
			return fmt.Errorf("%s shader is not compiled", obj.stage)
		}
		switch obj.stage {
		case camquad.StageVertex:
			if prog.vertex != nil {
				return fmt.Errorf("more than one vertex shader attached")
			}
			prog.vertex = obj
		case camquad.StageFragment:
			if prog.fragment != nil {
				return fmt.Errorf("more than one fragment shader attached")
			}
			prog.fragment = obj
		}
	}
	if prog.vertex == nil {
		return fmt.Errorf("no vertex shader attached")
	}
	if prog.fragment == nil {
		return fmt.Errorf("no fragment shader attached")
	}

	produced := make(map[uint32]bool)
	for _, loc := range prog.vertex.refl.outputs {
		produced[loc] = true
	}
	for name, loc := range prog.fragment.refl.inputs {
		if !produced[loc] {
			return fmt.Errorf("fragment input %q at @location(%d) is not written by the vertex stage", name, loc)
		}
	}

	prog.attribs = make(map[string]uint32, len(prog.vertex.refl.inputs))
	for name, loc := range prog.vertex.refl.inputs {
		prog.attribs[name] = loc
	}

	bindings, err := mergeBindings(prog.vertex.refl.bindings, prog.fragment.refl.bindings)
	if err != nil {
		return err
	}
	prog.bindings = bindings
	prog.samplers = pairSamplers(bindings)
	prog.units = make(map[uint32]int, len(prog.samplers))
	for slot := range prog.samplers {
		prog.units[slot] = 0
	}
	prog.pipelines = make(map[string]hal.RenderPipeline)

	return b.createLayouts(prog)
}

// mergeBindings combines the resource declarations of both stages. A name
// declared twice must agree on slot and kind.
func mergeBindings(stages ...[]binding) (map[string]binding, error) {
	out := make(map[string]binding)
	slots := make(map[uint32]string)
	for _, decls := range stages {
		for _, d := range decls {
			if d.kind == bindingOther {
				return nil, fmt.Errorf("binding %q: only texture_2d and sampler resources are supported", d.name)
			}
			if prev, ok := out[d.name]; ok {
				if prev != d {
					return nil, fmt.Errorf("binding %q declared differently in both stages", d.name)
				}
				continue
			}
			if other, ok := slots[d.slot]; ok {
				return nil, fmt.Errorf("@binding(%d) used by both %q and %q", d.slot, other, d.name)
			}
			out[d.name] = d
			slots[d.slot] = d.name
		}
	}
	return out, nil
}

// pairSamplers assigns each texture the sampler named <texture>Sampler,
// falling back to the lowest sampler slot. Textures without any sampler
// are left out and cannot be addressed.
func pairSamplers(bindings map[string]binding) map[uint32]uint32 {
	var samplers []uint32
	for _, bind := range bindings {
		if bind.kind == bindingSampler {
			samplers = append(samplers, bind.slot)
		}
	}
	sort.Slice(samplers, func(i, j int) bool { return samplers[i] < samplers[j] })

	pairs := make(map[uint32]uint32)
	for name, bind := range bindings {
		if bind.kind != bindingTexture {
			continue
		}
		if s, ok := bindings[name+"Sampler"]; ok && s.kind == bindingSampler {
			pairs[bind.slot] = s.slot
		} else if len(samplers) > 0 {
			pairs[bind.slot] = samplers[0]
		}
	}
	return pairs
}

func (b *Backend) createLayouts(prog *programObject) error {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(prog.bindings))
	for _, bind := range sortedBindings(prog.bindings) {
		entry := gputypes.BindGroupLayoutEntry{
			Binding:    bind.slot,
			Visibility: gputypes.ShaderStageFragment,
		}
		if bind.kind == bindingTexture {
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		} else {
			entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
		}
		entries = append(entries, entry)
	}

	var layouts []hal.BindGroupLayout
	if len(entries) > 0 {
		layout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   "camquad_bind_layout",
			Entries: entries,
		})
		if err != nil {
			return fmt.Errorf("create bind group layout: %w", err)
		}
		prog.bindLayout = layout
		layouts = append(layouts, layout)
	}

	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "camquad_pipe_layout",
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	prog.pipeLayout = pipeLayout
	return nil
}

func sortedBindings(bindings map[string]binding) []binding {
	out := make([]binding, 0, len(bindings))
	for _, bind := range bindings {
		out = append(out, bind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].slot < out[j].slot })
	return out
}

func (b *Backend) destroyLinkState(prog *programObject) {
	for key, pipe := range prog.pipelines {
		b.device.DestroyRenderPipeline(pipe)
		delete(prog.pipelines, key)
	}
	if prog.pipeLayout != nil {
		b.device.DestroyPipelineLayout(prog.pipeLayout)
		prog.pipeLayout = nil
	}
	if prog.bindLayout != nil {
		b.device.DestroyBindGroupLayout(prog.bindLayout)
		prog.bindLayout = nil
	}
}

// vertexInputs resolves every vertex input of prog to the buffer bound with
// VertexAttribPointer. Each input gets its own buffer slot. The key
// identifies the resulting layout for the pipeline cache.
func (b *Backend) vertexInputs(prog *programObject) ([]gputypes.VertexBufferLayout, []hal.Buffer, string, error) {
	locs := prog.vertex.refl.inputLocations()
	layouts := make([]gputypes.VertexBufferLayout, 0, len(locs))
	bufs := make([]hal.Buffer, 0, len(locs))
	var key strings.Builder
	for _, loc := range locs {
		src, ok := b.vertex[camquad.Attrib(loc)]
		if !ok {
			return nil, nil, "", fmt.Errorf("vertex input @location(%d) has no buffer", loc)
		}
		obj := b.buffers[src.buf]
		if obj == nil {
			return nil, nil, "", fmt.Errorf("vertex input @location(%d) buffer was deleted", loc)
		}
		stride := src.stride
		if stride == 0 {
			stride = src.size * 4
		}
		layouts = append(layouts, gputypes.VertexBufferLayout{
			ArrayStride: uint64(stride),
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: vertexFormat(src.size), Offset: 0, ShaderLocation: loc},
			},
		})
		bufs = append(bufs, obj.buf)
		key.WriteString(strconv.Itoa(int(loc)) + ":" + strconv.Itoa(src.size) + "/" + strconv.Itoa(stride) + ";")
	}
	return layouts, bufs, key.String(), nil
}

func vertexFormat(size int) gputypes.VertexFormat {
	switch size {
	case 1:
		return gputypes.VertexFormatFloat32
	case 2:
		return gputypes.VertexFormatFloat32x2
	case 3:
		return gputypes.VertexFormatFloat32x3
	default:
		return gputypes.VertexFormatFloat32x4
	}
}

// pipeline returns the cached render pipeline for the given vertex layout,
// creating it on first use.
func (b *Backend) pipeline(prog *programObject, key string, layouts []gputypes.VertexBufferLayout) (hal.RenderPipeline, error) {
	if pipe, ok := prog.pipelines[key]; ok {
		return pipe, nil
	}
	pipe, err := b.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "camquad_pipeline",
		Layout: prog.pipeLayout,
		Vertex: hal.VertexState{
			Module:     prog.vertex.module,
			EntryPoint: prog.vertex.refl.entry,
			Buffers:    layouts,
		},
		Fragment: &hal.FragmentState{
			Module:     prog.fragment.module,
			EntryPoint: prog.fragment.refl.entry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    b.targetFormat(),
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}
	prog.pipelines[key] = pipe
	return pipe, nil
}

// bindGroup builds this draw's bind group from the textures currently bound
// to the program's units. The group is released after the frame is
// submitted.
func (b *Backend) bindGroup(prog *programObject) (hal.BindGroup, error) {
	if prog.bindLayout == nil {
		return nil, nil
	}
	sampler, err := b.ensureSampler()
	if err != nil {
		return nil, err
	}
	entries := make([]gputypes.BindGroupEntry, 0, len(prog.bindings))
	for _, bind := range sortedBindings(prog.bindings) {
		switch bind.kind {
		case bindingTexture:
			unit := prog.units[bind.slot]
			tex := b.textures[b.units[unit]]
			if tex == nil {
				return nil, fmt.Errorf("texture unit %d has no texture for %q", unit, bind.name)
			}
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  bind.slot,
				Resource: gputypes.TextureViewBinding{TextureView: uintptr(tex.view.NativeHandle())},
			})
		case bindingSampler:
			entries = append(entries, gputypes.BindGroupEntry{
				Binding:  bind.slot,
				Resource: gputypes.SamplerBinding{Sampler: uintptr(sampler.NativeHandle())},
			})
		}
	}
	bg, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "camquad_bind",
		Layout:  prog.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	b.frame.bindGroups = append(b.frame.bindGroups, bg)
	return bg, nil
}
