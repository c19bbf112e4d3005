package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveRuntimePath resolves a configured file or directory against the
// working directory; fallback is used when raw is empty.
func ResolveRuntimePath(raw, fallback string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		target = strings.TrimSpace(fallback)
	}
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	wd, err := os.Getwd()
	if err != nil || wd == "" {
		wd = "."
	}
	return filepath.Clean(filepath.Join(wd, target))
}
