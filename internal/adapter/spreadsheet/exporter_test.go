package spreadsheet

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
)

var created = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func testRecords() []domain.TweetRecord {
	return []domain.TweetRecord{
		{
			ID: "101", Created: created, Address: " istanbul taksim meydanında",
			Geo:  domain.Resolution{Status: domain.StatusResolved, Lat: 41.03, Lon: 28.98},
			Body: "Bugün ist. taksim meydanında, büyük bir kalabalık vardı",
		},
		{
			ID: "102", Created: created.Add(time.Hour),
			Geo:  domain.Resolution{Status: domain.StatusRejected, Lat: -3, Lon: 28.9},
			Body: "bugün",
		},
		{
			ID: "103", Created: created.Add(2 * time.Hour),
			Geo:  domain.Resolution{Status: domain.StatusResolved, Lat: 41.0301, Lon: 28.9801},
			Body: "bugün ist. taksim, yine",
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rowStrings(row *xlsx.Row) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.String()
	}
	return out
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "haberler.xlsx", FileName("haberler"))
	assert.Equal(t, "haberler.xlsx", FileName("haberler.xlsx"))
	assert.Equal(t, "haberler.xls", FileName("haberler.xls"))

	generated := FileName("")
	assert.True(t, strings.HasPrefix(generated, "tweets-"), generated)
	assert.Equal(t, ".xlsx", filepath.Ext(generated))
	assert.NotEqual(t, generated, FileName(""), "generated names must be unique")
}

func TestExporter_LoadRecords(t *testing.T) {
	dir := t.TempDir()
	e := NewExporter(dir, "out", 0, discardLogger())
	assert.Equal(t, filepath.Join(dir, "out.xlsx"), e.Path())

	require.NoError(t, e.LoadRecords(context.Background(), testRecords()))

	f, err := xlsx.OpenFile(e.Path())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet, ok := f.Sheet[SheetTweets]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 4)
	assert.Equal(t, []string{"ID", "LAT", "LNG", "Date", "Body"}, rowStrings(sheet.Rows[0]))

	first := sheet.Rows[1].Cells
	assert.Equal(t, "101", first[0].String())
	lat, err := first[1].Float()
	require.NoError(t, err)
	assert.InDelta(t, 41.03, lat, 1e-9)
	lng, err := first[2].Float()
	require.NoError(t, err)
	assert.InDelta(t, 28.98, lng, 1e-9)
	when, err := first[3].GetTime(false)
	require.NoError(t, err)
	assert.WithinDuration(t, created, when, time.Second)
	assert.Equal(t, "Bugün ist. taksim meydanında, büyük bir kalabalık vardı", first[4].String())

	// A rejected resolution is exported as the 0,0 sentinel.
	rejected := sheet.Rows[2].Cells
	assert.Equal(t, "102", rejected[0].String())
	lat, err = rejected[1].Float()
	require.NoError(t, err)
	assert.Zero(t, lat)
	lng, err = rejected[2].Float()
	require.NoError(t, err)
	assert.Zero(t, lng)

	assert.Equal(t, "103", sheet.Rows[3].Cells[0].String())
}

func TestExporter_LoadRecords_CellsSheet(t *testing.T) {
	e := NewExporter(t.TempDir(), "cells.xlsx", 7, discardLogger())
	require.NoError(t, e.LoadRecords(context.Background(), testRecords()))

	f, err := xlsx.OpenFile(e.Path())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)

	sheet, ok := f.Sheet[SheetCells]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, []string{"H3", "Count"}, rowStrings(sheet.Rows[0]))
	assert.Equal(t, "2", sheet.Rows[1].Cells[1].String())
}

func TestExporter_LoadRecords_Empty(t *testing.T) {
	e := NewExporter(t.TempDir(), "", 0, discardLogger())
	require.NoError(t, e.LoadRecords(context.Background(), nil))

	f, err := xlsx.OpenFile(e.Path())
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetTweets]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 1)
}

func TestExporter_LoadRecords_CreatesOutputDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")
	e := NewExporter(dir, "out", 0, discardLogger())
	require.NoError(t, e.LoadRecords(context.Background(), testRecords()))

	_, err := xlsx.OpenFile(e.Path())
	require.NoError(t, err)
}

func TestExporter_LoadRecords_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExporter(t.TempDir(), "out", 0, discardLogger())
	require.ErrorIs(t, e.LoadRecords(ctx, testRecords()), context.Canceled)
}
