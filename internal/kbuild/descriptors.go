package kbuild

import (
	"fmt"
	"os"
	"strings"
)

// descriptorFiles are rewritten during publish. Each references modules by
// build-tree-relative path, which stops meaning anything once the modules
// are flattened into a single directory.
var descriptorFiles = []string{"modules.dep", "modules.order", "modules.alias"}

// FlattenDescriptor rewrites every path-valued token of a descriptor file
// down to its filename component. Comment lines are kept byte-for-byte.
// The rewrite is idempotent: a file whose tokens are already bare
// filenames comes out identical.
func FlattenDescriptor(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		for j, tok := range fields {
			fields[j] = flattenToken(tok)
		}
		lines[i] = strings.Join(fields, " ")
	}
	return strings.Join(lines, "\n")
}

// flattenToken reduces a path-like token to its base name, preserving the
// dependency-target colon suffix.
func flattenToken(tok string) string {
	suffix := ""
	if strings.HasSuffix(tok, ":") {
		suffix = ":"
		tok = strings.TrimSuffix(tok, ":")
	}
	if idx := strings.LastIndex(tok, "/"); idx >= 0 {
		tok = tok[idx+1:]
	}
	return tok + suffix
}

// flattenDescriptorFile reads src, flattens it and writes the result to
// dst.
func flattenDescriptorFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read descriptor %s: %w", src, err)
	}
	if err := os.WriteFile(dst, []byte(FlattenDescriptor(string(data))), 0o644); err != nil {
		return fmt.Errorf("failed to write descriptor %s: %w", dst, err)
	}
	return nil
}
