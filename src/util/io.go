// Package util holds small pieces of ambient support shared across
// mccomp's pipeline stages.
package util

import (
	"fmt"
	"os"
)

// ReadSource reads the MiniC source file at path in full.
func ReadSource(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading source %q: %w", path, err)
	}
	return string(b), nil
}

// WriteOutput writes the generated LLVM IR text to path, creating it if
// necessary and truncating any existing content.
func WriteOutput(path, ir string) error {
	if err := os.WriteFile(path, []byte(ir), 0o644); err != nil {
		return fmt.Errorf("writing output %q: %w", path, err)
	}
	return nil
}
