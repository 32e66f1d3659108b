package parser

import (
	"path"
	"strings"
)

// RustCrateRoot returns the directory holding a file's crate src/ tree
// ("crates/core/src/a.rs" -> "crates/core"), or "" when the file is not under src/.
func RustCrateRoot(filePath string) string {
	root, _, ok := splitSrc(filePath)
	if !ok {
		return ""
	}
	return root
}

// RustModulePath derives the module path of a file from its location:
// src/lib.rs and src/main.rs are "crate", src/a/mod.rs is "crate::a",
// src/a/b.rs is "crate::a::b". Files outside src/ use their directory segments.
func RustModulePath(filePath string) string {
	_, rest, ok := splitSrc(filePath)
	if !ok {
		rest = filePath
	}

	dir, base := path.Split(rest)
	stem := strings.TrimSuffix(base, path.Ext(base))

	var segs []string
	if dir = strings.Trim(dir, "/"); dir != "" {
		segs = strings.Split(dir, "/")
	}
	switch {
	case stem == "mod":
	case ok && dir == "" && (stem == "lib" || stem == "main"):
	default:
		segs = append(segs, stem)
	}

	for i, s := range segs {
		segs[i] = strings.ReplaceAll(s, "-", "_")
	}
	if !ok {
		return strings.Join(segs, "::")
	}
	return strings.Join(append([]string{"crate"}, segs...), "::")
}

// splitSrc splits at the last "src" directory segment
func splitSrc(filePath string) (root, rest string, ok bool) {
	parts := strings.Split(filePath, "/")
	for i := len(parts) - 2; i >= 0; i-- {
		if parts[i] == "src" {
			return strings.Join(parts[:i], "/"), strings.Join(parts[i+1:], "/"), true
		}
	}
	return "", "", false
}
