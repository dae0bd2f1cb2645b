// Package audit writes the per-run alignment report: one row per catalog
// image considered, with the Moon alignment magnitudes and the debug overlay link.
package audit

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Row is one audited image.
type Row struct {
	Day         string  `parquet:"day"`
	Date        string  `parquet:"date"`
	Image       string  `parquet:"image"`
	LunarDSCOVR float64 `parquet:"lunar_dscovr"`
	LunarSun    float64 `parquet:"lunar_sun"`
	Link        string  `parquet:"link"`
}

var header = []string{"day", "date", "image", "lunar dscovr", "lunar sun", "link"}

// Log collects rows during a run.
type Log struct {
	rows []Row
}

func (l *Log) Add(r Row) {
	l.rows = append(l.rows, r)
}

func (l *Log) Rows() []Row {
	return l.rows
}

// Path names the report for a run started at now.
func Path(dir, format string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%d.%s", now.Unix(), format))
}

// Write stores rows at path, as CSV or Parquet depending on the extension.
func Write(path string, rows []Row) error {
	ext := strings.ToLower(filepath.Ext(path))

	var err error
	switch ext {
	case ".csv":
		err = writeCSV(path, rows)
	case ".parquet":
		err = parquet.WriteFile(path, rows)
	default:
		return fmt.Errorf("unsupported audit format: %s (supported: .csv, .parquet)", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to write audit %s: %w", path, err)
	}

	slog.Info("Wrote audit", "path", path, "rows", len(rows))
	return nil
}

func writeCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Day,
			r.Date,
			r.Image,
			strconv.FormatFloat(r.LunarDSCOVR, 'g', -1, 64),
			strconv.FormatFloat(r.LunarSun, 'g', -1, 64),
			r.Link,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
