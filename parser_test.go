package matsys

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sampleDoc = "\ufeff// leading comment\n" + `VertexLitGeneric
{
	$basetexture "models/crate" // trailing comment
	"$color" "[1 .5 .5]"
	$alpha 0.5
	/* block
	   comment */
	$surfaceprop "wood ""oak"""
	$path "a\\b\"c"
	">=dx90"
	{
		$detail detail/noise
	}
	Proxies
	{
		Sine
		{
			resultVar $alpha
		}
	}
}
`

func TestParseSample(t *testing.T) {
	doc := mustParse(t, sampleDoc)

	assert.Equal(t, "VertexLitGeneric", doc.Name)
	assert.True(t, doc.IsSection())
	assert.Equal(t, "models/crate", doc.String("$basetexture", ""))
	assert.Equal(t, "[1 .5 .5]", doc.String("$COLOR", ""), "keys compare case-insensitively")
	assert.InDelta(t, 0.5, doc.Float("$alpha", 0), 1e-9)
	assert.Equal(t, `wood "oak"`, doc.String("$surfaceprop", ""))
	assert.Equal(t, `a\b"c`, doc.String("$path", ""))

	dx := doc.FindSection(">=dx90")
	require.NotNil(t, dx)
	assert.Equal(t, "detail/noise", dx.String("$detail", ""))

	sine := doc.FindSection("proxies").FindSection("sine")
	require.NotNil(t, sine, dump(doc))
	assert.Equal(t, "$alpha", sine.String("resultVar", ""))
}

func TestParseDisableComments(t *testing.T) {
	doc, err := Parse([]byte(`X { $url http://host/x }`), &ParseOptions{DisableComments: true})
	require.NoError(t, err)
	assert.Equal(t, "http://host/x", doc.String("$url", ""))

	doc, err = Parse([]byte(`X { $url http://host/x }`), nil)
	require.Error(t, err, "comment swallows the closing brace: %s", dump(doc))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", ``, ErrParse},
		{"no section", `X $a 1`, ErrParse},
		{"unterminated section", `X { $a 1`, ErrParse},
		{"missing value", `X { $a }`, ErrParse},
		{"unterminated string", `X { $a "1 }`, ErrLex},
		{"trailing token", `X { } Y`, ErrParse},
		{"brace key", `X { { } }`, ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in), nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := Parse([]byte("X\n{\n\t$a 1\n\t}\n}"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at 5:1")
}

func TestFormatRoundTrip(t *testing.T) {
	doc := mustParse(t, sampleDoc)

	out, err := Format(doc, nil)
	require.NoError(t, err)
	again := mustParse(t, string(out))
	assert.Equal(t, doc, again, "formatted:\n%s", out)

	out2, err := Format(again, nil)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(out2), "formatting is deterministic")
}

func TestEncodeFileRoundTrip(t *testing.T) {
	doc := mustParse(t, sampleDoc)
	path := filepath.Join(t.TempDir(), "crate.vmt")

	require.NoError(t, EncodeFile(path, doc, &FormatOptions{Indent: "  "}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "VertexLitGeneric\n{\n  $basetexture"), string(raw))

	back, err := DecodeFile(path, nil)
	require.NoError(t, err)
	assert.Equal(t, doc, back, dump(back))

	err = EncodeFile(filepath.Join(t.TempDir(), "missing", "x.vmt"), doc, nil)
	assert.Error(t, err)
}

func TestFormatOptions(t *testing.T) {
	doc := NewSection("X")
	doc.Set("$a", "1")
	doc.Set("key with space", "v")
	sub := NewSection(">=dx90")
	sub.Set("$b", "2")
	doc.Add(sub)

	out, err := Format(doc, &FormatOptions{Indent: "  "})
	require.NoError(t, err)
	assert.Equal(t, "X\n{\n  $a \"1\"\n  \"key with space\" \"v\"\n  >=dx90\n  {\n    $b \"2\"\n  }\n}\n", string(out))

	out, err = Format(doc, &FormatOptions{QuoteKeys: true})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "\"X\"\n{\n\t\"$a\" \"1\"\n"), string(out))
}

func TestNodeEditing(t *testing.T) {
	doc := mustParse(t, `X { $a 1 $b 2 $a 3 sub { $c 4 } }`)

	assert.Equal(t, "1", doc.String("$a", ""), "Find returns the first match")
	assert.Equal(t, 2, doc.Remove("$A"))
	assert.Equal(t, "def", doc.String("$a", "def"))
	assert.Equal(t, "def", doc.String("sub", "def"), "sections have no scalar value")
	assert.Equal(t, 7, doc.Int("$missing", 7))

	doc.Set("$b", "5")
	assert.Equal(t, 5, doc.Int("$b", 0))

	clone := doc.Clone()
	clone.FindSection("sub").Set("$c", "9")
	assert.Equal(t, "4", doc.FindSection("sub").String("$c", ""), "clone is deep")

	var paths []string
	doc.Walk(func(path []string, n *Node) bool {
		paths = append(paths, strings.Join(path, "/"))
		return true
	})
	assert.Equal(t, []string{"X", "X/$b", "X/sub", "X/sub/$c"}, paths)
}

func TestWalkPathsStayValid(t *testing.T) {
	doc := mustParse(t, `X { a { $x 1 } b { $y 2 } c { $z 3 } }`)

	var kept [][]string
	doc.Walk(func(path []string, n *Node) bool {
		if !n.Section {
			kept = append(kept, path)
		}
		return true
	})

	assert.Equal(t, [][]string{
		{"X", "a", "$x"},
		{"X", "b", "$y"},
		{"X", "c", "$z"},
	}, kept, "sibling walks must not overwrite a kept path")
}

func TestMarshalYAMLKeepsOrder(t *testing.T) {
	doc := mustParse(t, `X { $z 1 $a 2 sub { $m "3" } }`)

	out, err := MarshalYAMLBytes(doc)
	require.NoError(t, err)
	assert.Equal(t, "X:\n    $z: \"1\"\n    $a: \"2\"\n    sub:\n        $m: \"3\"\n", string(out))

	var back map[string]map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "2", back["X"]["$a"])
}
