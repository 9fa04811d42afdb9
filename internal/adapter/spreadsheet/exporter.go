// Package spreadsheet writes tweet records to an .xlsx workbook.
package spreadsheet

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/tealeg/xlsx/v2"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
	"github.com/couchcryptid/tweet-mapper-etl/internal/spatial"
)

const (
	// SheetTweets holds one row per record.
	SheetTweets = "Tweets"
	// SheetCells holds per-H3-cell counts of resolved records.
	SheetCells = "Cells"
)

var tweetColumns = []string{"ID", "LAT", "LNG", "Date", "Body"}

// Exporter saves records to a workbook. It implements pipeline.RecordLoader.
type Exporter struct {
	path         string
	h3Resolution int
	logger       *slog.Logger
}

// NewExporter creates an exporter writing to dir/FileName(name). An
// h3Resolution of 0 omits the Cells sheet.
func NewExporter(dir, name string, h3Resolution int, logger *slog.Logger) *Exporter {
	return &Exporter{
		path:         filepath.Join(dir, FileName(name)),
		h3Resolution: h3Resolution,
		logger:       logger,
	}
}

// FileName returns name with ".xlsx" appended when it has no extension, or a
// fresh "tweets-<uuid>.xlsx" when name is empty.
func FileName(name string) string {
	if name == "" {
		return "tweets-" + uuid.NewString() + ".xlsx"
	}
	if filepath.Ext(name) == "" {
		return name + ".xlsx"
	}
	return name
}

// Path is where the workbook is saved.
func (e *Exporter) Path() string {
	return e.path
}

// LoadRecords writes the whole record set, in order, replacing any earlier
// workbook at the same path.
func (e *Exporter) LoadRecords(ctx context.Context, records []domain.TweetRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f := xlsx.NewFile()
	if err := writeTweets(f, records); err != nil {
		return err
	}
	if e.h3Resolution > 0 {
		if err := writeCells(f, records, e.h3Resolution); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(e.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := f.Save(e.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", e.path, err)
	}

	e.logger.Info("workbook saved", "path", e.path, "records", len(records))
	return nil
}

func writeTweets(f *xlsx.File, records []domain.TweetRecord) error {
	sheet, err := f.AddSheet(SheetTweets)
	if err != nil {
		return fmt.Errorf("add sheet %s: %w", SheetTweets, err)
	}
	addHeader(sheet, tweetColumns...)

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.ID)
		row.AddCell().SetFloat(r.Lat())
		row.AddCell().SetFloat(r.Lng())
		row.AddCell().SetDateTime(r.Created)
		row.AddCell().SetString(r.Body)
	}
	return nil
}

func writeCells(f *xlsx.File, records []domain.TweetRecord, resolution int) error {
	bins, err := spatial.BinRecords(records, resolution)
	if err != nil {
		return err
	}

	sheet, err := f.AddSheet(SheetCells)
	if err != nil {
		return fmt.Errorf("add sheet %s: %w", SheetCells, err)
	}
	addHeader(sheet, "H3", "Count")

	for _, b := range bins {
		row := sheet.AddRow()
		row.AddCell().SetString(b.Cell)
		row.AddCell().SetInt(b.Count)
	}
	return nil
}

func addHeader(sheet *xlsx.Sheet, names ...string) {
	row := sheet.AddRow()
	for _, name := range names {
		row.AddCell().SetString(name)
	}
}
