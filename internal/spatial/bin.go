// Package spatial bins resolved records into H3 cells.
package spatial

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/uber/h3-go/v4"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
)

// MaxResolution is the finest H3 resolution.
const MaxResolution = 15

// CellCount is the number of resolved records that fall in one H3 cell.
type CellCount struct {
	Cell  string
	Count int
}

// BinRecords counts resolved records per H3 cell at the given resolution.
// Unresolved records are skipped. The result is ordered by count descending,
// then by cell index.
func BinRecords(records []domain.TweetRecord, resolution int) ([]CellCount, error) {
	if resolution < 0 || resolution > MaxResolution {
		return nil, fmt.Errorf("h3 resolution %d out of range [0, %d]", resolution, MaxResolution)
	}

	counts := make(map[string]int)
	for _, r := range records {
		if !r.Geo.Resolved() {
			continue
		}
		cell, err := h3.LatLngToCell(h3.NewLatLng(r.Lat(), r.Lng()), resolution)
		if err != nil {
			return nil, fmt.Errorf("record %s: h3 cell at res %d: %w", r.ID, resolution, err)
		}
		counts[cell.String()]++
	}

	bins := make([]CellCount, 0, len(counts))
	for cell, n := range counts {
		bins = append(bins, CellCount{Cell: cell, Count: n})
	}
	slices.SortFunc(bins, func(a, b CellCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Cell, b.Cell)
	})
	return bins, nil
}
