package matsys

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

// fakeBackend hands out one snapshot per CreateSnapshot call.
type fakeBackend struct {
	next  Snapshot
	descs map[Snapshot]PipelineDesc
	fail  func(desc *PipelineDesc) error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{descs: make(map[Snapshot]PipelineDesc)}
}

func (b *fakeBackend) CreateSnapshot(desc *PipelineDesc) (Snapshot, error) {
	if b.fail != nil {
		if err := b.fail(desc); err != nil {
			return 0, err
		}
	}
	b.next++
	b.descs[b.next] = *desc
	return b.next, nil
}

func (b *fakeBackend) ReleaseSnapshot(s Snapshot) { delete(b.descs, s) }

func (b *fakeBackend) IsTranslucent(s Snapshot) bool {
	d := b.descs[s]
	return d.Translucent()
}

func (b *fakeBackend) IsAlphaTested(s Snapshot) bool { return b.descs[s].AlphaTest.Enable }

func (b *fakeBackend) VertexFormat(passes []Snapshot) VertexFormat {
	var vf VertexFormat
	for _, s := range passes {
		vf = vf.Union(b.descs[s].VertexFormat)
	}
	return vf
}

func (b *fakeBackend) live() int { return len(b.descs) }

// fakeTexture counts references.
type fakeTexture struct {
	name string
	refs int
}

func (t *fakeTexture) Name() string { return t.name }
func (t *fakeTexture) IncRef()      { t.refs++ }
func (t *fakeTexture) DecRef()      { t.refs-- }

// fakeTextures resolves every name except the missing ones.
type fakeTextures struct {
	mu      sync.Mutex
	byName  map[string]*fakeTexture
	missing map[string]bool
	errTex  *fakeTexture
}

func newFakeTextures(missing ...string) *fakeTextures {
	ft := &fakeTextures{
		byName:  make(map[string]*fakeTexture),
		missing: make(map[string]bool),
		errTex:  &fakeTexture{name: "error", refs: 1},
	}
	for _, m := range missing {
		ft.missing[m] = true
	}
	return ft
}

func (ft *fakeTextures) FindTexture(ref TextureRef, group string) (Texture, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()

	if ft.missing[ref.Raw] {
		return nil, fmt.Errorf("no texture %s", ref.Raw)
	}
	t, ok := ft.byName[ref.Raw]
	if !ok {
		t = &fakeTexture{name: ref.Raw}
		ft.byName[ref.Raw] = t
	}
	t.IncRef()
	return t, nil
}

func (ft *fakeTextures) ErrorTexture() Texture { return ft.errTex }

func (ft *fakeTextures) get(name string) *fakeTexture {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.byName[name]
}

// fakeCommands records draw commands.
type fakeCommands struct {
	bound     []Snapshot
	constants map[int]mgl32.Vec4
	textures  map[int]Texture
	draws     int
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{constants: make(map[int]mgl32.Vec4), textures: make(map[int]Texture)}
}

func (c *fakeCommands) BindSnapshot(s Snapshot)            { c.bound = append(c.bound, s) }
func (c *fakeCommands) SetConstant(slot int, v mgl32.Vec4) { c.constants[slot] = v }
func (c *fakeCommands) BindTexture(unit int, tex Texture)  { c.textures[unit] = tex }
func (c *fakeCommands) Draw()                              { c.draws++ }

// logSink collects log records.
type logSink struct {
	mu      sync.Mutex
	records []slog.Record
}

func (s *logSink) Enabled(context.Context, slog.Level) bool { return true }

func (s *logSink) Handle(_ context.Context, r slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r.Clone())
	return nil
}

func (s *logSink) WithAttrs([]slog.Attr) slog.Handler { return s }
func (s *logSink) WithGroup(string) slog.Handler      { return s }

// count returns the number of records at level or above whose message contains msg.
func (s *logSink) count(level slog.Level, msg string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, r := range s.records {
		if r.Level >= level && strings.Contains(r.Message, msg) {
			n++
		}
	}
	return n
}

// warnings returns the number of records at warning level or above.
func (s *logSink) warnings() int { return s.count(slog.LevelWarn, "") }

func (s *logSink) dump() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	for _, r := range s.records {
		fmt.Fprintf(&b, "%s %s", r.Level, r.Message)
		r.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
			return true
		})
		b.WriteByte('\n')
	}
	return b.String()
}

// testShader records one pass per modulation and a second pass with the flashlight.
func testShader(name string) *Shader {
	return &Shader{
		Name: name,
		Params: []Param{
			{Name: "$envmap", Type: ParamTexture},
			{Name: "$scale", Type: ParamFloat, Default: "1"},
			{Name: "$tint", Type: ParamColor, Default: "[1 1 1]"},
			{Name: "$detailmaterial", Type: ParamMaterial},
		},
		Snapshot: func(rec *Recorder, vars *VarSet) {
			desc := PipelineDesc{
				VertexShader: "test_vs",
				PixelShader:  "test_ps",
				VertexFormat: VFPosition.WithTexCoord(0, 2),
			}
			if vars.HasFlag(FlagTranslucent) {
				desc.Blend = BlendState{Blend: true, SrcFac: BlendSrcAlpha, DstFac: BlendInvSrcAlpha}
			}
			if vars.HasFlag(FlagAlphaTest) {
				desc.AlphaTest = AlphaTestState{Enable: true, Ref: 0.5}
			}
			rec.Pass(desc)
			if rec.Has(ModFlashlight) {
				fl := desc
				fl.PixelShader = "test_flashlight_ps"
				fl.VertexFormat |= VFNormal
				rec.Pass(fl)
			}
		},
		Dynamic: func(cmd CommandBuffer, vars *VarSet, mod Modulation, pass int) {
			cmd.SetConstant(0, vars.Var(VarColor).GetVec())
			cmd.BindTexture(0, vars.Var(VarBaseTexture).GetTexture())
		},
	}
}

// testEnv is a system over in-memory documents and fakes.
type testEnv struct {
	sys      *System
	store    *VariableStore
	backend  *fakeBackend
	textures *fakeTextures
	logs     *logSink
	files    fstest.MapFS
}

type testOption func(*SystemOptions)

func withCaps(caps Capabilities) testOption {
	return func(o *SystemOptions) { o.Capabilities = caps }
}

func withMaxIncludeDepth(n int) testOption {
	return func(o *SystemOptions) { o.MaxIncludeDepth = n }
}

// newTestEnv creates a system whose file reader serves docs by logical name
// and which knows the shaders X, Y and Z.
func newTestEnv(t *testing.T, docs map[string]string, opts ...testOption) *testEnv {
	t.Helper()

	files := fstest.MapFS{}
	for name, text := range docs {
		files[name+".vmt"] = &fstest.MapFile{Data: []byte(text)}
	}

	logs := &logSink{}
	logger := slog.New(logs)
	store := NewVariableStore(&StoreOptions{PageSize: 16, QueueSize: 4, Logger: logger})
	t.Cleanup(func() { _ = store.Close() })

	opt := &SystemOptions{Capabilities: DefaultCapabilities(), Logger: logger}
	for _, o := range opts {
		o(opt)
	}

	env := &testEnv{
		store:    store,
		backend:  newFakeBackend(),
		textures: newFakeTextures(),
		logs:     logs,
		files:    files,
	}
	sys, err := NewSystem(store, Environment{
		Files:    FSReader{FS: files},
		Textures: env.textures,
		Backend:  env.backend,
	}, opt)
	require.NoError(t, err)
	for _, name := range []string{"X", "Y", "Z"} {
		require.NoError(t, sys.RegisterShader(testShader(name)))
	}
	env.sys = sys
	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("logs:\n%s", logs.dump())
		}
	})

	return env
}

// mustParse parses a document or fails the test.
func mustParse(t *testing.T, text string) *Node {
	t.Helper()
	n, err := Parse([]byte(text), nil)
	require.NoError(t, err, "parse:\n%s", text)
	return n
}

// dump renders a value for failure messages.
func dump(v any) string {
	return spew.Sdump(v)
}
