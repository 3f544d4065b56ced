package camquad_test

import (
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/gogpu/camquad"
	"github.com/gogpu/camquad/internal/fakegpu"
)

func newQuadBuffers(t *testing.T, b camquad.Backend) (*camquad.VertexBuffer, *camquad.IndexBuffer) {
	t.Helper()
	vb, err := camquad.NewVertexBuffer(b, camquad.QuadVertices)
	if err != nil {
		t.Fatalf("NewVertexBuffer() = %v", err)
	}
	ib, err := camquad.NewIndexBuffer(b, camquad.QuadIndices)
	if err != nil {
		t.Fatalf("NewIndexBuffer() = %v", err)
	}
	return vb, ib
}

func TestGPUInterfaceValidPair(t *testing.T) {
	b := fakegpu.New()
	g := camquad.NewGPUInterface(b, testVertex, testFragment)
	if !g.Valid() {
		t.Fatalf("Valid() = false, Err() = %v", g.Err())
	}
	if g.Err() != nil {
		t.Errorf("Err() = %v, want nil", g.Err())
	}
	if shaders, programs, _, _ := b.Live(); shaders != 0 || programs != 1 {
		t.Errorf("live shaders/programs = %d/%d, want 0/1", shaders, programs)
	}

	vb, ib := newQuadBuffers(t, b)
	b.Reset()

	g.Select()
	g.DrawIndexedBufferedData(vb, ib, 0, camquad.DefaultAttribute)
	g.DrawBufferedData(vb, 12, camquad.DefaultAttribute, 1, 3)

	draws := b.Draws()
	if len(draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(draws))
	}

	indexed := draws[0]
	if !indexed.Indexed || indexed.Count != 6 || indexed.Index != ib.Handle() {
		t.Errorf("indexed draw = %+v, want 6 indices from %v", indexed, ib.Handle())
	}
	if indexed.Program != g.Program() {
		t.Errorf("indexed draw program = %v, want %v", indexed.Program, g.Program())
	}
	if indexed.Vertex != vb.Handle() || indexed.Size != 3 {
		t.Errorf("indexed draw vertex binding = %v size %d, want %v size 3", indexed.Vertex, indexed.Size, vb.Handle())
	}

	arrays := draws[1]
	if arrays.Indexed || arrays.First != 1 || arrays.Count != 3 || arrays.Stride != 12 {
		t.Errorf("array draw = %+v, want first=1 count=3 stride=12", arrays)
	}
}

func TestGPUInterfaceRejectedSourceIsInert(t *testing.T) {
	tests := []struct {
		name     string
		vertex   string
		fragment string
		linkLog  string
		wantErr  error
	}{
		{"vertex rejected", badSource, testFragment, "", camquad.ErrCompile},
		{"fragment rejected", testVertex, badSource, "", camquad.ErrCompile},
		{"empty vertex", "", testFragment, "", camquad.ErrEmptySource},
		{"link rejected", testVertex, testFragment, "link failed", camquad.ErrLink},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fakegpu.New()
			b.LinkLog = tt.linkLog
			g := camquad.NewGPUInterface(b, tt.vertex, tt.fragment)
			if g.Valid() {
				t.Fatal("Valid() = true for rejected source")
			}
			if g.Program().Valid() {
				t.Errorf("Program() = %v, want sentinel", g.Program())
			}
			err := g.Err()
			if !errors.Is(err, camquad.ErrInvalidInterface) || !errors.Is(err, tt.wantErr) {
				t.Errorf("Err() = %v, want ErrInvalidInterface wrapping %v", err, tt.wantErr)
			}
			if shaders, programs, _, _ := b.Live(); shaders != 0 || programs != 0 {
				t.Errorf("leaked shaders/programs = %d/%d", shaders, programs)
			}

			vb, ib := newQuadBuffers(t, b)
			b.Reset()

			g.Select()
			g.SetUniform1i(camquad.DefaultSampler, 0)
			g.DrawBufferedData(vb, 0, camquad.DefaultAttribute, 0, 4)
			g.DrawIndexedBufferedData(vb, ib, 0, camquad.DefaultAttribute)
			if a := g.AttribLocation(camquad.DefaultAttribute); a.Valid() {
				t.Errorf("AttribLocation() = %v, want sentinel", a)
			}
			if u := g.UniformLocation(camquad.DefaultSampler); u.Valid() {
				t.Errorf("UniformLocation() = %v, want sentinel", u)
			}
			g.Destroy()

			if calls := b.Calls(); len(calls) != 0 {
				t.Errorf("backend calls after construction = %v, want none", calls)
			}
		})
	}
}

func TestGPUInterfaceLocationCache(t *testing.T) {
	b := fakegpu.New()
	g := camquad.NewGPUInterface(b, testVertex, testFragment)
	g.Select()
	b.Reset()

	for range 3 {
		g.SetUniform1i(camquad.DefaultSampler, 0)
		g.AttribLocation(camquad.DefaultAttribute)
	}
	g.SetUniform1i("uMissing", 7)
	g.SetUniform1i("uMissing", 7)

	if got := b.CallCount("UniformLocation"); got != 2 {
		t.Errorf("UniformLocation lookups = %d, want 2", got)
	}
	if got := b.CallCount("AttribLocation"); got != 1 {
		t.Errorf("AttribLocation lookups = %d, want 1", got)
	}
	if v, ok := b.Uniform(g.Program(), 0); !ok || v != 0 {
		t.Errorf("sampler uniform = %d (set=%v), want 0", v, ok)
	}
}

func TestGPUInterfaceMissingAttributeSkipsDraw(t *testing.T) {
	b := fakegpu.New()
	g := camquad.NewGPUInterface(b, testVertex, testFragment)
	vb, ib := newQuadBuffers(t, b)
	g.Select()

	g.DrawIndexedBufferedData(vb, ib, 0, "aPosition")
	g.DrawBufferedData(vb, 0, "aPosition", 0, 4)

	if n := len(b.Draws()); n != 0 {
		t.Errorf("draws = %d, want 0", n)
	}
	if n := b.CallCount("VertexAttribPointer"); n != 0 {
		t.Errorf("VertexAttribPointer calls = %d, want 0", n)
	}
}

func TestGPUInterfaceDestroy(t *testing.T) {
	b := fakegpu.New()
	g := camquad.NewGPUInterface(b, testVertex, testFragment)
	g.Destroy()

	if g.Valid() {
		t.Error("Valid() = true after Destroy")
	}
	if !errors.Is(g.Err(), camquad.ErrInvalidInterface) {
		t.Errorf("Err() = %v, want ErrInvalidInterface", g.Err())
	}
	if _, programs, _, _ := b.Live(); programs != 0 {
		t.Errorf("live programs = %d, want 0", programs)
	}

	b.Reset()
	g.Destroy()
	g.Select()
	if n := len(b.Calls()); n != 0 {
		t.Errorf("calls after Destroy = %d, want 0", n)
	}
}

func TestGPUInterfaceNilBackend(t *testing.T) {
	g := camquad.NewGPUInterface(nil, testVertex, testFragment)
	if g.Valid() {
		t.Error("Valid() = true with nil backend")
	}
	if !errors.Is(g.Err(), camquad.ErrNilBackend) {
		t.Errorf("Err() = %v, want ErrNilBackend", g.Err())
	}
	g.Select()
}

func TestBindForSampling(t *testing.T) {
	b := fakegpu.New()
	tex := b.CreateTexture()
	b.Reset()

	camquad.BindForSampling(b, 2, tex)
	if got := b.BoundTexture(2); got != tex {
		t.Errorf("BoundTexture(2) = %v, want %v", got, tex)
	}

	b.Reset()
	camquad.BindForSampling(b, 0, camquad.InvalidTexture)
	camquad.BindForSampling(nil, 0, tex)
	if n := len(b.Calls()); n != 0 {
		t.Errorf("calls for invalid texture = %d, want 0", n)
	}
}

func TestBuffers(t *testing.T) {
	b := fakegpu.New()
	vb, ib := newQuadBuffers(t, b)

	if vb.Len() != 12 || vb.VertexCount() != 4 {
		t.Errorf("vertex buffer len/count = %d/%d, want 12/4", vb.Len(), vb.VertexCount())
	}
	if data, ok := b.BufferData(vb.Handle()); !ok || len(data) != 48 {
		t.Errorf("vertex buffer bytes = %d, want 48", len(data))
	}
	if data, ok := b.BufferData(ib.Handle()); !ok || len(data) != 12 {
		t.Errorf("index buffer bytes = %d, want 12", len(data))
	}

	vb.Release()
	vb.Release()
	ib.Release()
	if got := b.CallCount("DeleteBuffer"); got != 2 {
		t.Errorf("DeleteBuffer calls = %d, want 2", got)
	}
	if vb.Handle().Valid() {
		t.Error("released buffer still has a valid handle")
	}

	if _, err := camquad.NewVertexBuffer(b, nil); !errors.Is(err, camquad.ErrEmptyBuffer) {
		t.Errorf("NewVertexBuffer(nil) = %v, want ErrEmptyBuffer", err)
	}
	b.FailBuffers = true
	if _, err := camquad.NewIndexBuffer(b, camquad.QuadIndices); !errors.Is(err, camquad.ErrBufferCreate) {
		t.Errorf("NewIndexBuffer() = %v, want ErrBufferCreate", err)
	}
}

func TestBufferBytesDecode(t *testing.T) {
	tests := []struct {
		name string
		data []float32
	}{
		{"quad", camquad.QuadVertices},
		{"single vertex", []float32{0.5, -0.25, 1}},
		{"extremes", []float32{math.MaxFloat32, -math.SmallestNonzeroFloat32, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fakegpu.New()
			vb, err := camquad.NewVertexBuffer(b, tt.data)
			if err != nil {
				t.Fatalf("NewVertexBuffer() = %v", err)
			}
			raw, ok := b.BufferData(vb.Handle())
			if !ok {
				t.Fatal("backend has no data for the vertex buffer")
			}
			if len(raw) != len(tt.data)*4 {
				t.Fatalf("bytes = %d, want %d", len(raw), len(tt.data)*4)
			}
			got := make([]float32, len(raw)/4)
			for i := range got {
				got[i] = math.Float32frombits(binary.NativeEndian.Uint32(raw[i*4:]))
			}
			if !slices.Equal(got, tt.data) {
				t.Errorf("decoded = %v, want %v", got, tt.data)
			}
		})
	}

	b := fakegpu.New()
	ib, err := camquad.NewIndexBuffer(b, camquad.QuadIndices)
	if err != nil {
		t.Fatalf("NewIndexBuffer() = %v", err)
	}
	raw, _ := b.BufferData(ib.Handle())
	got := make([]uint16, len(raw)/2)
	for i := range got {
		got[i] = binary.NativeEndian.Uint16(raw[i*2:])
	}
	if !slices.Equal(got, camquad.QuadIndices) {
		t.Errorf("decoded indices = %v, want %v", got, camquad.QuadIndices)
	}
}

func TestDrawBufferedDataRange(t *testing.T) {
	tests := []struct {
		name         string
		start, count int
		wantDraw     bool
	}{
		{"whole buffer", 0, 4, true},
		{"tail", 1, 3, true},
		{"past end", 1, 4, false},
		{"start at end", 4, 1, false},
		{"negative start", -1, 2, false},
		{"zero count", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fakegpu.New()
			g := camquad.NewGPUInterface(b, testVertex, testFragment)
			vb, _ := newQuadBuffers(t, b)
			g.Select()
			b.Reset()

			g.DrawBufferedData(vb, 0, camquad.DefaultAttribute, tt.start, tt.count)
			if got := b.CallCount("DrawArrays") == 1; got != tt.wantDraw {
				t.Errorf("drew = %v, want %v", got, tt.wantDraw)
			}
			if !tt.wantDraw && len(b.Calls()) != 0 {
				t.Errorf("calls = %v, want none", b.Methods())
			}
		})
	}
}
