// Command tweetmap maps a news account's timeline onto coordinates and exports
// the result as a spreadsheet.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("tweetmap failed", "error", err)
		os.Exit(1)
	}
}
