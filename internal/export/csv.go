package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"padscan/internal/sample"
)

// WriteCSV writes the measurement table to <name>_colors.csv in dir and
// returns the file path. Colorspace column groups appear only when
// their reports carry them, separated by a blank spacer column so the
// table reads in blocks when opened in a spreadsheet.
func WriteCSV(dir, name string, reports []sample.Report) (string, error) {
	path := filepath.Join(dir, name+"_colors.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	hasRGB := len(reports) > 0 && reports[0].RGB != nil
	hasHSV := len(reports) > 0 && reports[0].HSV != nil
	hasLab := len(reports) > 0 && reports[0].Lab != nil

	w := csv.NewWriter(f)

	header := []string{"id"}
	if hasRGB {
		header = append(header, "R", "G", "B", "std R", "std G", "std B", "")
	}
	header = append(header, "Gray", "std Gray", "")
	if hasHSV {
		header = append(header, "H", "S", "V", "std H", "std S", "std V", "")
	}
	if hasLab {
		header = append(header, "L", "a", "b", "std L", "std a", "std b", "")
	}
	header = append(header, "Area [pixels]")
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range reports {
		row := []string{strconv.Itoa(r.ID)}
		if hasRGB {
			row = appendStats(row, r.RGB)
		}
		row = append(row, ftoa(r.Gray), ftoa(r.GrayStd), "")
		if hasHSV {
			row = appendStats(row, r.HSV)
		}
		if hasLab {
			row = appendStats(row, r.Lab)
		}
		row = append(row, ftoa(r.Area))
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write csv row %d: %w", r.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return path, nil
}

func appendStats(row []string, s *sample.Stats) []string {
	for _, v := range s.Mean {
		row = append(row, ftoa(v))
	}
	for _, v := range s.Std {
		row = append(row, ftoa(v))
	}
	return append(row, "")
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
