package matsys

import "errors"

var (
	// ErrLex indicates a lexer failure.
	ErrLex = errors.New("lex error")

	// ErrParse indicates a parser failure.
	ErrParse = errors.New("parse error")

	// ErrDefinitionNotFound indicates the file reader has no document for a material name.
	ErrDefinitionNotFound = errors.New("definition not found")

	// ErrMalformedDefinition indicates a document that could not be parsed or has an unusable shape.
	ErrMalformedDefinition = errors.New("malformed definition")

	// ErrCyclicInclude indicates a patch $include chain that revisits a document or exceeds the depth limit.
	ErrCyclicInclude = errors.New("cyclic include")

	// ErrCyclicFallbackMaterial indicates a $fallbackmaterial chain that revisits a document.
	ErrCyclicFallbackMaterial = errors.New("cyclic fallback material")

	// ErrSelfFallbackMaterial indicates a $fallbackmaterial that names the material itself.
	ErrSelfFallbackMaterial = errors.New("fallback material redirects to itself")

	// ErrUnknownShader indicates a shader name with no registered descriptor.
	ErrUnknownShader = errors.New("unknown shader")

	// ErrEmptyBaselineSnapshot indicates the baseline modulation recorded no passes.
	ErrEmptyBaselineSnapshot = errors.New("empty baseline snapshot")

	// ErrEmptySnapshot indicates an enabled modulation recorded no passes.
	ErrEmptySnapshot = errors.New("empty snapshot")

	// ErrTooManyPasses indicates a shader recorded more than MaxRenderPasses passes.
	ErrTooManyPasses = errors.New("too many render passes")

	// ErrUnsupportedVertexLayout indicates a merged vertex format the geometry pipeline cannot consume.
	ErrUnsupportedVertexLayout = errors.New("unsupported vertex layout")

	// ErrUndefinedVariable indicates a by-name lookup of a variable the material does not have.
	ErrUndefinedVariable = errors.New("undefined variable")

	// ErrStoreBusy indicates a store operation that needs quiescence ran during threaded access
	// or with queued commands.
	ErrStoreBusy = errors.New("variable store busy")

	// ErrStoreClosed indicates use of a closed variable store.
	ErrStoreClosed = errors.New("variable store closed")
)
