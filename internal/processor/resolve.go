package processor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const colorizedSuffix = "-colorized"

// ResolveOutputPath derives the default output path for input: stem-colorized.ext
// in outputDir, or next to input when outputDir is empty. If that path is taken,
// stem-colorized-1.ext, stem-colorized-2.ext, ... are probed and the first free
// one is returned. Nothing is created on disk.
func ResolveOutputPath(input, outputDir string) string {
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}

	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	candidate := filepath.Join(dir, stem+colorizedSuffix+ext)
	for n := 1; exists(candidate); n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s%s-%d%s", stem, colorizedSuffix, n, ext))
	}
	return candidate
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
