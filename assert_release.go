//go:build !debug

package matsys

// debugAssertions makes programmer errors panic instead of logging.
const debugAssertions = false
