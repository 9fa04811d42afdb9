// Command genmock reads a CSV export of timeline posts and generates the
// fixtures used by offline runs and extraction regression checks. It uses the
// actual domain extractor so the golden addresses match real pipeline
// behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv data/timeline.csv \
//	  -posts-out data/mock/posts.jsonl \
//	  -golden-out data/mock/addresses.json
//
// The CSV needs a header row with id, created_at (RFC 3339), and text columns.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
)

// goldenEntry pairs a post with the address the extractor produced for it.
type goldenEntry struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "CSV export with id, created_at, text columns")
	postsOut := flag.String("posts-out", "", "output path for the JSON-lines post fixture")
	goldenOut := flag.String("golden-out", "", "output path for the extracted-address golden file")
	tablePath := flag.String("table", "", "optional YAML abbreviation table")
	flag.Parse()

	if *csvPath == "" || *postsOut == "" || *goldenOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -posts-out, -golden-out")
	}

	var table domain.AbbreviationTable
	if *tablePath != "" {
		f, err := os.Open(*tablePath)
		if err != nil {
			return fmt.Errorf("open table: %w", err)
		}
		table, err = domain.LoadAbbreviations(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("load table: %w", err)
		}
	}

	posts, err := readCSV(*csvPath)
	if err != nil {
		return fmt.Errorf("processing %s: %w", *csvPath, err)
	}
	log.Printf("read %d posts", len(posts))

	ext := domain.NewExtractor(table)
	golden := make([]goldenEntry, len(posts))
	for i, p := range posts {
		golden[i] = goldenEntry{ID: p.ID, Address: ext.Extract(domain.LowerText(p.Body))}
	}

	if err := writeJSONLines(*postsOut, posts); err != nil {
		return fmt.Errorf("writing post fixture: %w", err)
	}
	log.Printf("wrote post fixture: %s", *postsOut)

	if err := writeJSON(*goldenOut, golden); err != nil {
		return fmt.Errorf("writing golden file: %w", err)
	}
	log.Printf("wrote golden file: %s", *goldenOut)

	printStats(golden)
	return nil
}

func readCSV(path string) ([]domain.Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	return parseCSV(f)
}

func parseCSV(r io.Reader) ([]domain.Post, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"id", "created_at", "text"} {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	posts := make([]domain.Post, 0, len(rows)-1)
	for n, row := range rows[1:] {
		created, err := time.Parse(time.RFC3339, get(row, colIdx, "created_at"))
		if err != nil {
			return nil, fmt.Errorf("row %d: created_at: %w", n+2, err)
		}
		posts = append(posts, domain.Post{
			ID:        get(row, colIdx, "id"),
			Body:      get(row, colIdx, "text"),
			CreatedAt: created.UTC(),
		})
	}
	return posts, nil
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func writeJSONLines(path string, posts []domain.Post) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for _, p := range posts {
		if err := enc.Encode(p); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// statsResult holds aggregated counts for printStats reporting.
type statsResult struct {
	total     int
	empty     int
	addresses map[string]int
}

func collectStats(golden []goldenEntry) statsResult {
	s := statsResult{total: len(golden), addresses: map[string]int{}}
	for _, g := range golden {
		if strings.TrimSpace(g.Address) == "" {
			s.empty++
			continue
		}
		s.addresses[strings.TrimSpace(g.Address)]++
	}
	return s
}

type addressCount struct {
	address string
	count   int
}

func printStats(golden []goldenEntry) {
	stats := collectStats(golden)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", stats.total)
	fmt.Printf("Empty address: %d\n", stats.empty)
	fmt.Printf("Distinct addresses: %d\n", len(stats.addresses))

	ac := make([]addressCount, 0, len(stats.addresses))
	for a, c := range stats.addresses {
		ac = append(ac, addressCount{a, c})
	}
	sort.Slice(ac, func(i, j int) bool {
		if ac[i].count != ac[j].count {
			return ac[i].count > ac[j].count
		}
		return ac[i].address < ac[j].address
	})

	fmt.Println("\nMost frequent addresses:")
	for _, a := range ac[:min(10, len(ac))] {
		fmt.Printf("  %4d  %s\n", a.count, a.address)
	}
}
