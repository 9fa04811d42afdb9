// Package postfile reads posts from a JSON-lines file for offline runs.
package postfile

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
	"github.com/couchcryptid/tweet-mapper-etl/internal/observability"
)

// maxLineBytes caps one JSON line; long posts with entities stay well under it.
const maxLineBytes = 1 << 20

// Source reads one {"id","text","created_at"} object per line.
// It implements pipeline.PostSource.
type Source struct {
	path     string
	maxPosts int
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewSource creates a file-backed post source. maxPosts <= 0 reads every line.
func NewSource(path string, maxPosts int, metrics *observability.Metrics, logger *slog.Logger) *Source {
	return &Source{path: path, maxPosts: maxPosts, metrics: metrics, logger: logger}
}

// FetchPosts returns the file's posts in file order.
func (s *Source) FetchPosts(ctx context.Context) ([]domain.Post, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open post file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var posts []domain.Post
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var p domain.Post
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", s.path, line, err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("%s line %d: post id is empty", s.path, line)
		}
		posts = append(posts, p)

		if s.maxPosts > 0 && len(posts) == s.maxPosts {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read post file: %w", err)
	}

	s.metrics.PostsFetched.Add(float64(len(posts)))
	s.logger.Info("post file read", "path", s.path, "posts", len(posts))
	return posts, nil
}
