package server

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// filePattern matches every file with an extension at any depth. Extensions
// are compared case-insensitively afterwards.
const filePattern = "**/*.*"

// supportedExt reports whether a file extension is an importable invoice.
func supportedExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// CollectFiles expands paths into absolute invoice file paths. Files are kept
// when their extension is supported; directories are walked recursively.
// Missing paths are ignored. The result is deduplicated and sorted by
// case-insensitive base name.
func CollectFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			return
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	for _, raw := range paths {
		p := expandHome(strings.TrimSpace(raw))
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			if supportedExt(p) {
				add(p)
			}
			continue
		}

		matches, err := doublestar.Glob(os.DirFS(p), filePattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if supportedExt(m) {
				add(filepath.Join(p, filepath.FromSlash(m)))
			}
		}
	}

	sort.SliceStable(files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(files[i])) < strings.ToLower(filepath.Base(files[j]))
	})
	return files, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
