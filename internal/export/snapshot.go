package export

import (
	"fmt"
	"path/filepath"

	"padscan/internal/mask"
	"padscan/internal/session"

	"gocv.io/x/gocv"
)

// WriteSnapshot renders one pipeline stage and writes it into dir as
// <name>_snapshot_<stage><ext>, returning the file path.
func WriteSnapshot(dir string, s *session.Session, st mask.Stage) (string, error) {
	img, err := s.StageView(st)
	if err != nil {
		return "", err
	}
	defer img.Close()

	src := s.Source()
	path := filepath.Join(dir, fmt.Sprintf("%s_snapshot_%s%s", src.Name, st, src.Ext))
	if ok := gocv.IMWrite(path, img); !ok {
		return "", fmt.Errorf("write snapshot %s", path)
	}
	return path, nil
}
