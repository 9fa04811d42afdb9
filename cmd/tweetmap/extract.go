package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
)

func newExtractCmd() *cobra.Command {
	var tablePath string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Print the address extracted from each line of stdin",
		Long: `extract runs only the address heuristic: every stdin line is treated as a
post body, lower-cased with Turkish rules, and the extracted address is
printed on its own line (empty when nothing could be extracted). Use it to
check the offsets and abbreviation table against a new feed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := loadTable(tablePath)
			if err != nil {
				return err
			}
			return extractLines(cmd.InOrStdin(), cmd.OutOrStdout(), domain.NewExtractor(table))
		},
	}
	cmd.Flags().StringVar(&tablePath, "table", "", "YAML abbreviation table (default: built-in Turkish table)")
	return cmd
}

func extractLines(r io.Reader, w io.Writer, ext *domain.Extractor) error {
	scanner := bufio.NewScanner(r)
	out := bufio.NewWriter(w)
	for scanner.Scan() {
		if _, err := fmt.Fprintln(out, ext.Extract(domain.LowerText(scanner.Text()))); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return out.Flush()
}

// loadTable reads an abbreviation table file. An empty path yields nil, which
// selects the built-in table.
func loadTable(path string) (domain.AbbreviationTable, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open abbreviation table: %w", err)
	}
	defer f.Close()

	table, err := domain.LoadAbbreviations(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}
