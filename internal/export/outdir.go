// Package export writes analysis artifacts: the measurement table,
// annotated images, per-zone crops, and histograms.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir creates and returns the artifact directory for an image path.
// The directory sits next to the image, named after it with an
// _analysis suffix. An existing directory is never reused; a numeric
// suffix is appended until a fresh name is found, so repeated runs
// against one image keep their artifacts apart.
func Dir(imagePath string) (string, error) {
	base := strings.TrimSuffix(imagePath, filepath.Ext(imagePath))
	dir := base + "_analysis"
	for n := 1; ; n++ {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			break
		}
		dir = fmt.Sprintf("%s_analysis_%d", base, n)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return dir, nil
}
