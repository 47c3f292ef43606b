package matsys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(testShader("VertexLitGeneric")))
	return reg
}

func issueCodes(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.Code
	}
	return out
}

func findIssue(issues []Issue, code string) (Issue, bool) {
	for _, is := range issues {
		if is.Code == code {
			return is, true
		}
	}
	return Issue{}, false
}

const validateDoc = `VertexLitGeneric
{
	$alpha .5
	$scale abc
	$envmap "env/cube.tga"
	$unknownthing 1
	%keywords "wood"
	$translucent 1
	$translucent 1
	$fallbackmaterial "materials/Self.vmt"
	Proxies { Sine { resultVar $alpha } }
	Proxys { }
	">=dx90" { $scale 2 $bogus x }
}`

func TestValidate(t *testing.T) {
	doc := mustParse(t, validateDoc)
	issues := Validate("self", doc, testRegistry(t), nil)

	assert.ElementsMatch(t, []string{
		CodeBadValue,
		"texture_ext",
		CodeUndeclaredParam,
		CodeDuplicateFlag,
		CodeSelfFallback,
		CodeUnknownSection,
		CodeUndeclaredParam,
	}, issueCodes(issues), dump(issues))

	is, ok := findIssue(issues, CodeBadValue)
	require.True(t, ok)
	assert.Equal(t, IssueError, is.Level)
	assert.Equal(t, "$scale", is.Path)

	is, _ = findIssue(issues, "texture_ext")
	assert.Equal(t, "$envmap/env/cube.tga", is.Path)

	is, _ = findIssue(issues, CodeUnknownSection)
	assert.Equal(t, "Proxys", is.Path)
	assert.Contains(t, is.Message, "did you mean Proxies?")

	var paths []string
	for _, is := range issues {
		if is.Code == CodeUndeclaredParam {
			paths = append(paths, is.Path)
		}
	}
	assert.ElementsMatch(t, []string{"$unknownthing", ">=dx90/$bogus"}, paths)
}

func TestValidateOptions(t *testing.T) {
	doc := mustParse(t, validateDoc)
	low := DefaultCapabilities()
	low.FeatureLevel = 80

	issues := Validate("other", doc, testRegistry(t), &ValidateOptions{
		Capabilities:           &low,
		DisableUndeclaredCheck: true,
		DisableTextureCheck:    true,
	})
	assert.ElementsMatch(t, []string{CodeBadValue, CodeDuplicateFlag, CodeUnknownSection}, issueCodes(issues), dump(issues))
}

func TestValidateShaderName(t *testing.T) {
	reg := testRegistry(t)

	issues := Validate("a", mustParse(t, `VertexLitGenric { $alpha 1 }`), reg, nil)
	require.Len(t, issues, 1)
	assert.Equal(t, CodeUnknownShader, issues[0].Code)
	assert.Contains(t, issues[0].Message, "did you mean VertexLitGeneric?")

	issues = Validate("a", mustParse(t, `VertexLitGenric { $alpha 1 }`), reg, &ValidateOptions{DisableShaderNameCheck: true})
	assert.Empty(t, issues)

	issues = Validate("a", mustParse(t, `Anything { $alpha 1 $whatever 2 }`), nil, nil)
	assert.Empty(t, issues, "without a registry only structure is checked")
}

func TestValidatePatch(t *testing.T) {
	issues := Validate("p", mustParse(t, `patch { include base insert { $a 1 } bogus { } $other 1 }`), nil, nil)
	assert.Equal(t, []string{CodePatchSection, CodePatchSection}, issueCodes(issues))

	issues = Validate("p", mustParse(t, `patch { replace { $a 1 } }`), nil, nil)
	assert.Equal(t, []string{CodeIncludeMissing}, issueCodes(issues))
}

func TestValidateEmpty(t *testing.T) {
	issues := Validate("x", nil, nil, nil)
	require.Len(t, issues, 1)
	assert.Equal(t, CodeEmptyDocument, issues[0].Code)
}
