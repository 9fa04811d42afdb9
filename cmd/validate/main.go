// Command validate checks an exported workbook against the posts it was built
// from: sheet layout, row coverage and order, coordinate sentinels, dates,
// and optionally the extractor's output against a golden file.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -posts data/mock/posts.jsonl \
//	  -workbook tweets.xlsx \
//	  -golden data/mock/addresses.json
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/tealeg/xlsx/v2"

	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/spreadsheet"
	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
)

var wantHeader = []string{"ID", "LAT", "LNG", "Date", "Body"}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	postsPath := flag.String("posts", "", "JSON-lines post file the run consumed")
	workbookPath := flag.String("workbook", "", "exported .xlsx workbook")
	goldenPath := flag.String("golden", "", "optional extracted-address golden file from genmock")
	flag.Parse()

	if *postsPath == "" || *workbookPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, *postsPath, *workbookPath, *goldenPath); code != 0 {
		os.Exit(code)
	}
}

func run(w io.Writer, postsPath, workbookPath, goldenPath string) int {
	fmt.Fprintln(w, "=== Tweet Workbook Validation ===")
	fmt.Fprintln(w)

	posts, err := loadPosts(postsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load posts: %v\n", err)
		return 1
	}

	f, err := xlsx.OpenFile(workbookPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open workbook: %v\n", err)
		return 1
	}

	structure, rows := validateStructure(f)
	phases := []*phase{
		structure,
		validateCoverage(rows, posts),
		validateCoordinates(rows),
		validateDates(rows, posts),
	}

	if goldenPath != "" {
		golden, err := loadGolden(goldenPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load golden: %v\n", err)
			return 1
		}
		phases = append(phases, validateGolden(posts, golden))
	}

	fmt.Fprintln(w)
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = fmt.Sprintf("FAIL (%d errors)", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d posts, %d workbook rows\n", len(posts), len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadPosts(path string) ([]domain.Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var posts []domain.Post
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var p domain.Post
		if err := json.Unmarshal(scanner.Bytes(), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		posts = append(posts, p)
	}
	return posts, scanner.Err()
}

type goldenEntry struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

func loadGolden(path string) ([]goldenEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []goldenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ── Phases ──

func validateStructure(f *xlsx.File) (*phase, []*xlsx.Row) {
	p := &phase{name: "Workbook structure"}

	sheet, ok := f.Sheet[spreadsheet.SheetTweets]
	if !ok {
		p.errorf("sheet %q not found", spreadsheet.SheetTweets)
		return p, nil
	}
	if len(sheet.Rows) == 0 {
		p.errorf("sheet %q is empty", spreadsheet.SheetTweets)
		return p, nil
	}

	header := make([]string, 0, len(sheet.Rows[0].Cells))
	for _, c := range sheet.Rows[0].Cells {
		header = append(header, c.String())
	}
	if !slices.Equal(header, wantHeader) {
		p.errorf("header = %v, want %v", header, wantHeader)
	}

	rows := sheet.Rows[1:]
	for i, r := range rows {
		if len(r.Cells) < len(wantHeader) {
			p.errorf("row %d: %d cells, want %d", i+2, len(r.Cells), len(wantHeader))
		}
	}
	return p, rows
}

func validateCoverage(rows []*xlsx.Row, posts []domain.Post) *phase {
	p := &phase{name: "Row coverage and order"}
	if len(rows) != len(posts) {
		p.errorf("%d rows for %d posts", len(rows), len(posts))
	}
	for i := range min(len(rows), len(posts)) {
		if got := cellString(rows[i], 0); got != posts[i].ID {
			p.errorf("row %d: id %q, want %q", i+2, got, posts[i].ID)
		}
	}
	return p
}

func validateCoordinates(rows []*xlsx.Row) *phase {
	p := &phase{name: "Coordinate sentinels"}
	for i, r := range rows {
		if len(r.Cells) < 3 {
			continue
		}
		lat, latErr := r.Cells[1].Float()
		lng, lngErr := r.Cells[2].Float()
		if latErr != nil || lngErr != nil {
			p.errorf("row %d: non-numeric coordinates %q, %q", i+2, r.Cells[1].String(), r.Cells[2].String())
			continue
		}
		if lat < 0 || lng < 0 {
			p.errorf("row %d: negative coordinate (%g, %g) was not replaced by the sentinel", i+2, lat, lng)
		}
		if (lat == 0) != (lng == 0) {
			p.errorf("row %d: half sentinel (%g, %g)", i+2, lat, lng)
		}
	}
	return p
}

func validateDates(rows []*xlsx.Row, posts []domain.Post) *phase {
	p := &phase{name: "Post dates"}
	for i := range min(len(rows), len(posts)) {
		r := rows[i]
		if len(r.Cells) < 4 {
			continue
		}
		got, err := r.Cells[3].GetTime(false)
		if err != nil {
			p.errorf("row %d: date %q: %v", i+2, r.Cells[3].String(), err)
			continue
		}
		if diff := got.Sub(posts[i].CreatedAt.UTC()).Abs(); diff > time.Second {
			p.errorf("row %d: date %s, want %s", i+2, got.Format(time.RFC3339), posts[i].CreatedAt.UTC().Format(time.RFC3339))
		}
	}
	return p
}

func validateGolden(posts []domain.Post, golden []goldenEntry) *phase {
	p := &phase{name: "Extractor golden addresses"}
	want := make(map[string]string, len(golden))
	for _, g := range golden {
		want[g.ID] = g.Address
	}
	for _, post := range posts {
		exp, ok := want[post.ID]
		if !ok {
			p.errorf("post %s: missing from golden file", post.ID)
			continue
		}
		if got := domain.ExtractAddress(domain.LowerText(post.Body)); got != exp {
			p.errorf("post %s: address %q, want %q", post.ID, got, exp)
		}
	}
	return p
}

func cellString(r *xlsx.Row, i int) string {
	if i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i].String()
}
