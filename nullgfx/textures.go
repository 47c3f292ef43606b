package nullgfx

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/woozymasta/matsys"
)

// ErrTextureNotFound indicates a texture the set does not know.
var ErrTextureNotFound = errors.New("nullgfx: texture not found")

// ErrorTextureName is the name of the texture returned by ErrorTexture.
const ErrorTextureName = "error"

// Texture is a named reference counter.
type Texture struct {
	name string
	refs atomic.Int32
}

// Name implements matsys.Texture.
func (t *Texture) Name() string { return t.name }

// IncRef implements matsys.Texture.
func (t *Texture) IncRef() { t.refs.Add(1) }

// DecRef implements matsys.Texture.
func (t *Texture) DecRef() { t.refs.Add(-1) }

// Refs returns the reference count.
func (t *Texture) Refs() int { return int(t.refs.Load()) }

// TextureSet is a matsys.TextureProvider. In strict mode only names added
// with Add resolve; otherwise every path reference resolves. Procedural
// references always resolve.
type TextureSet struct {
	Strict bool

	mu       sync.Mutex
	known    map[string]struct{}
	textures map[string]*Texture
	errTex   *Texture
}

// NewTextureSet returns a set that knows names. A set created with names is strict.
func NewTextureSet(names ...string) *TextureSet {
	ts := &TextureSet{
		Strict:   len(names) > 0,
		known:    make(map[string]struct{}),
		textures: make(map[string]*Texture),
		errTex:   &Texture{name: ErrorTextureName},
	}
	ts.errTex.IncRef()
	ts.Add(names...)

	return ts
}

// Add makes names resolvable in strict mode.
func (ts *TextureSet) Add(names ...string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for _, n := range names {
		ts.known[matsys.NormalizeTextureName(n)] = struct{}{}
	}
}

// FindTexture implements matsys.TextureProvider.
func (ts *TextureSet) FindTexture(ref matsys.TextureRef, group string) (matsys.Texture, error) {
	name := ref.Raw
	if ref.IsPath() {
		name = matsys.NormalizeTextureName(name)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrTextureNotFound)
	}
	if ref.IsProcedural() && !ref.ParsedOK {
		return nil, fmt.Errorf("%w: malformed procedural %q", ErrTextureNotFound, ref.Raw)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if _, ok := ts.known[name]; ts.Strict && ref.IsPath() && !ok {
		return nil, fmt.Errorf("%w: %s (group %q)", ErrTextureNotFound, name, group)
	}

	t, ok := ts.textures[name]
	if !ok {
		t = &Texture{name: name}
		ts.textures[name] = t
	}
	t.IncRef()

	return t, nil
}

// ErrorTexture implements matsys.TextureProvider.
func (ts *TextureSet) ErrorTexture() matsys.Texture { return ts.errTex }

// Lookup returns a texture handed out before.
func (ts *TextureSet) Lookup(name string) (*Texture, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	t, ok := ts.textures[matsys.NormalizeTextureName(name)]
	return t, ok
}

// Live returns the names of textures with outstanding references, sorted.
func (ts *TextureSet) Live() []string {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	var out []string
	for n, t := range ts.textures {
		if t.Refs() > 0 {
			out = append(out, n)
		}
	}
	slices.Sort(out)

	return out
}
