package wgpu

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gogpu/naga"

	"github.com/gogpu/camquad"
)

// bindingKind classifies a group(0) resource declaration.
type bindingKind int

const (
	bindingTexture bindingKind = iota
	bindingSampler
	bindingOther
)

// binding is one @group(0) @binding(N) var declaration.
type binding struct {
	name string
	slot uint32
	kind bindingKind
}

// reflection is what the backend learns from a WGSL stage without running a
// full front end: the entry point, its @location inputs and outputs and the
// resource bindings the module declares.
type reflection struct {
	entry    string
	inputs   map[string]uint32 // name -> location
	outputs  []uint32
	bindings []binding
}

var (
	reEntry = map[camquad.Stage]*regexp.Regexp{
		camquad.StageVertex:   regexp.MustCompile(`@vertex\s+fn\s+(\w+)\s*\(([^)]*)\)\s*(?:->\s*([^{]+))?\{`),
		camquad.StageFragment: regexp.MustCompile(`@fragment\s+fn\s+(\w+)\s*\(([^)]*)\)\s*(?:->\s*([^{]+))?\{`),
	}
	reLocation = regexp.MustCompile(`@location\((\d+)\)\s*(?:@\w+(?:\([^)]*\))?\s*)*(\w+)\s*:\s*([\w<>]+)`)
	reParam    = regexp.MustCompile(`^\s*(\w+)\s*:\s*(\w+)\s*$`)
	reBinding  = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<[^>]*>)?\s+(\w+)\s*:\s*([\w<>]+)`)
	reStruct   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	reReturnAt = regexp.MustCompile(`^\s*@location\((\d+)\)`)
)

// reflectStage extracts the interface of the given stage from src.
func reflectStage(stage camquad.Stage, src string) (*reflection, error) {
	m := reEntry[stage].FindStringSubmatch(src)
	if m == nil {
		return nil, fmt.Errorf("no @%s entry point", stage)
	}
	structs := make(map[string]string)
	for _, s := range reStruct.FindAllStringSubmatch(src, -1) {
		structs[s[1]] = s[2]
	}

	r := &reflection{entry: m[1], inputs: make(map[string]uint32)}

	// Parameters are either @location(N) name: type or a struct whose
	// members carry the locations.
	for _, param := range splitParams(m[2]) {
		if loc := reLocation.FindStringSubmatch(param); loc != nil {
			n, _ := strconv.ParseUint(loc[1], 10, 32)
			r.inputs[loc[2]] = uint32(n)
			continue
		}
		if p := reParam.FindStringSubmatch(param); p != nil {
			for _, loc := range reLocation.FindAllStringSubmatch(structs[p[2]], -1) {
				n, _ := strconv.ParseUint(loc[1], 10, 32)
				r.inputs[loc[2]] = uint32(n)
			}
		}
	}

	ret := strings.TrimSpace(m[3])
	if at := reReturnAt.FindStringSubmatch(ret); at != nil {
		n, _ := strconv.ParseUint(at[1], 10, 32)
		r.outputs = append(r.outputs, uint32(n))
	} else if body, ok := structs[ret]; ok {
		for _, loc := range reLocation.FindAllStringSubmatch(body, -1) {
			n, _ := strconv.ParseUint(loc[1], 10, 32)
			r.outputs = append(r.outputs, uint32(n))
		}
	}

	for _, b := range reBinding.FindAllStringSubmatch(src, -1) {
		if b[1] != "0" {
			return nil, fmt.Errorf("binding %q: only @group(0) is supported", b[3])
		}
		slot, _ := strconv.ParseUint(b[2], 10, 32)
		kind := bindingOther
		switch {
		case strings.HasPrefix(b[4], "texture_2d"):
			kind = bindingTexture
		case b[4] == "sampler":
			kind = bindingSampler
		}
		r.bindings = append(r.bindings, binding{name: b[3], slot: uint32(slot), kind: kind})
	}
	return r, nil
}

func splitParams(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// inputLocations returns the stage's input locations in ascending order.
func (r *reflection) inputLocations() []uint32 {
	locs := make([]uint32, 0, len(r.inputs))
	for _, l := range r.inputs {
		locs = append(locs, l)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })
	return locs
}

// compileWGSL compiles WGSL source to little-endian SPIR-V words.
func compileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, err
	}
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}
