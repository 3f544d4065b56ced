package camquad_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/camquad"
	"github.com/gogpu/camquad/internal/fakegpu"
)

const (
	testVertex   = "attribute vec4 aVertex;\nvoid main() { gl_Position = aVertex; }\n"
	testFragment = "precision mediump float;\nuniform sampler2D uTexture;\nvoid main() { gl_FragColor = vec4(1.0); }\n"
	badSource    = "#error broken\n"
)

func TestCompileShader(t *testing.T) {
	tests := []struct {
		name      string
		src       camquad.ShaderSource
		wantValid bool
		wantErr   error
		wantLog   string
	}{
		{"vertex", camquad.VertexSource(testVertex), true, nil, ""},
		{"fragment", camquad.FragmentSource(testFragment), true, nil, ""},
		{"rejected", camquad.VertexSource(badSource), false, camquad.ErrCompile, "#error"},
		{"empty", camquad.FragmentSource(""), false, camquad.ErrEmptySource, ""},
		{"blank", camquad.FragmentSource("  \n\t"), false, camquad.ErrEmptySource, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fakegpu.New()
			s, err := camquad.CompileShader(b, tt.src)
			if s.Valid() != tt.wantValid {
				t.Errorf("CompileShader() valid = %v, want %v", s.Valid(), tt.wantValid)
			}
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("CompileShader() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CompileShader() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, camquad.ErrCompile) {
				t.Errorf("error %v does not match ErrCompile", err)
			}
			var ce *camquad.CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("error %T is not *CompileError", err)
			}
			if ce.Stage != tt.src.Stage {
				t.Errorf("CompileError.Stage = %v, want %v", ce.Stage, tt.src.Stage)
			}
			if !strings.Contains(ce.Log, tt.wantLog) {
				t.Errorf("CompileError.Log = %q, want it to contain %q", ce.Log, tt.wantLog)
			}
		})
	}
}

func TestCompileShaderEmptySourceMakesNoCalls(t *testing.T) {
	b := fakegpu.New()
	if _, err := camquad.CompileShader(b, camquad.VertexSource("")); err == nil {
		t.Fatal("expected error for empty source")
	}
	if n := len(b.Calls()); n != 0 {
		t.Errorf("backend calls = %d, want 0", n)
	}
}

func TestCompileShaderDeletesRejectedHandle(t *testing.T) {
	b := fakegpu.New()
	b.RejectSource = func(stage camquad.Stage, _ string) string {
		if stage == camquad.StageFragment {
			return "0:3: undeclared identifier"
		}
		return ""
	}

	_, err := camquad.CompileShader(b, camquad.FragmentSource(testFragment))
	var ce *camquad.CompileError
	if !errors.As(err, &ce) || ce.Log != "0:3: undeclared identifier" {
		t.Fatalf("CompileShader() error = %v, want info log", err)
	}
	if got := b.CallCount("DeleteShader"); got != 1 {
		t.Errorf("DeleteShader calls = %d, want 1", got)
	}
	if shaders, _, _, _ := b.Live(); shaders != 0 {
		t.Errorf("live shaders = %d, want 0", shaders)
	}
}

func TestCompileShaderNilBackend(t *testing.T) {
	_, err := camquad.CompileShader(nil, camquad.VertexSource(testVertex))
	if !errors.Is(err, camquad.ErrNilBackend) {
		t.Errorf("CompileShader(nil) error = %v, want ErrNilBackend", err)
	}
}

func TestLinkProgram(t *testing.T) {
	b := fakegpu.New()
	vs, err := camquad.CompileShader(b, camquad.VertexSource(testVertex))
	if err != nil {
		t.Fatal(err)
	}
	fs, err := camquad.CompileShader(b, camquad.FragmentSource(testFragment))
	if err != nil {
		t.Fatal(err)
	}

	p, err := camquad.LinkProgram(b, vs, fs)
	if err != nil {
		t.Fatalf("LinkProgram() error = %v", err)
	}
	if !p.Valid() {
		t.Fatal("LinkProgram() returned invalid program")
	}
	if got := b.CallCount("UseProgram"); got != 0 {
		t.Errorf("LinkProgram activated the program (%d UseProgram calls)", got)
	}
	if b.Current().Valid() {
		t.Errorf("current program = %v, want none", b.Current())
	}
}

func TestLinkProgramFailure(t *testing.T) {
	b := fakegpu.New()
	b.LinkLog = "varying vTextureValue not written by vertex shader"
	vs, _ := camquad.CompileShader(b, camquad.VertexSource(testVertex))
	fs, _ := camquad.CompileShader(b, camquad.FragmentSource(testFragment))

	p, err := camquad.LinkProgram(b, vs, fs)
	if p.Valid() {
		t.Error("LinkProgram() returned valid program on failure")
	}
	if !errors.Is(err, camquad.ErrLink) {
		t.Fatalf("LinkProgram() error = %v, want ErrLink", err)
	}
	var le *camquad.LinkError
	if !errors.As(err, &le) || le.Log != b.LinkLog {
		t.Errorf("LinkError.Log = %v, want %q", err, b.LinkLog)
	}
	if _, programs, _, _ := b.Live(); programs != 0 {
		t.Errorf("live programs = %d, want 0", programs)
	}
}

func TestLinkProgramInvalidStages(t *testing.T) {
	b := fakegpu.New()
	vs, _ := camquad.CompileShader(b, camquad.VertexSource(testVertex))
	b.Reset()

	_, err := camquad.LinkProgram(b, vs, camquad.InvalidShader)
	if !errors.Is(err, camquad.ErrInvalidShader) {
		t.Errorf("LinkProgram() error = %v, want ErrInvalidShader", err)
	}
	if !errors.Is(err, camquad.ErrLink) {
		t.Errorf("LinkProgram() error = %v does not match ErrLink", err)
	}
	if n := len(b.Calls()); n != 0 {
		t.Errorf("backend calls = %d, want 0", n)
	}
}
