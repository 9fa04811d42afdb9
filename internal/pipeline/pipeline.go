package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
	"github.com/couchcryptid/tweet-mapper-etl/internal/observability"
)

// PostSource supplies the timeline to map, in timeline order.
type PostSource interface {
	FetchPosts(ctx context.Context) ([]domain.Post, error)
}

// Transformer converts a post into a tweet record.
type Transformer interface {
	Transform(ctx context.Context, post domain.Post) (domain.TweetRecord, error)
}

// RecordLoader receives the full, ordered record set once every post is mapped.
type RecordLoader interface {
	LoadRecords(ctx context.Context, records []domain.TweetRecord) error
}

// Checkpointer persists records as they are built so a re-run can skip posts
// that were already mapped.
type Checkpointer interface {
	Lookup(ctx context.Context, postID string) (domain.TweetRecord, bool, error)
	Save(ctx context.Context, record domain.TweetRecord) error
}

// Options tunes a Pipeline. The zero value maps posts one at a time with no
// checkpointing.
type Options struct {
	// Concurrency bounds in-flight posts. Values below 1 mean 1.
	Concurrency int
	// Checkpoint, when set, is consulted before and updated after each post.
	Checkpoint Checkpointer
	// OnRecord is called once per finished record. With Concurrency > 1 it
	// runs on worker goroutines and must be safe for concurrent use.
	OnRecord func(domain.TweetRecord)
}

// Pipeline orchestrates fetch, per-post mapping, and export for one run.
type Pipeline struct {
	source      PostSource
	transformer Transformer
	loaders     []RecordLoader
	opts        Options
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	processed   atomic.Int64
}

// New creates a Pipeline with the given stages and observability.
func New(s PostSource, t Transformer, loaders []RecordLoader, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	opts.Concurrency = max(opts.Concurrency, 1)
	return &Pipeline{
		source:      s,
		transformer: t,
		loaders:     loaders,
		opts:        opts,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once the pipeline has produced at least one
// record, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not produced any records yet")
	}
	return nil
}

// Ready reports whether at least one record has been produced.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Processed returns the number of records finished so far in this run.
func (p *Pipeline) Processed() int64 {
	return p.processed.Load()
}

// Run fetches the timeline, maps every post, and hands the records to each
// loader in post order. It stops at the first collaborator failure and
// returns it as a *domain.CollaboratorError; no loader is called in that case.
func (p *Pipeline) Run(ctx context.Context) (domain.Summary, error) {
	start := time.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	defer func() { p.metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	posts, err := p.source.FetchPosts(ctx)
	if err != nil {
		return domain.Summary{}, domain.NewCollaboratorError(domain.CollaboratorTimeline, err)
	}
	p.logger.Info("pipeline started", "posts", len(posts), "concurrency", p.opts.Concurrency)

	records, err := p.mapPosts(ctx, posts)
	if err != nil {
		return domain.Summary{}, err
	}

	for _, l := range p.loaders {
		if err := l.LoadRecords(ctx, records); err != nil {
			return domain.Summary{}, domain.NewCollaboratorError(domain.CollaboratorExport, err)
		}
	}

	summary := domain.Summarize(records)
	byStatus := make([]any, 0, 2*len(summary.ByStatus))
	for status, n := range summary.ByStatus {
		byStatus = append(byStatus, string(status), n)
	}
	p.logger.Info("pipeline finished",
		"total", summary.Total,
		"unresolved", summary.Unresolved,
		slog.Group("by_status", byStatus...),
		"duration", time.Since(start),
	)
	return summary, nil
}

// mapPosts builds one record per post. Records land at their post's index,
// so output order matches input order at any concurrency.
func (p *Pipeline) mapPosts(ctx context.Context, posts []domain.Post) ([]domain.TweetRecord, error) {
	records := make([]domain.TweetRecord, len(posts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for i, post := range posts {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			r, err := p.mapPost(gctx, post)
			if err != nil {
				return err
			}
			records[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (p *Pipeline) mapPost(ctx context.Context, post domain.Post) (domain.TweetRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.TweetRecord{}, err
	}

	cp := p.opts.Checkpoint
	if cp != nil {
		r, ok, err := cp.Lookup(ctx, post.ID)
		if err != nil {
			return domain.TweetRecord{}, domain.NewCollaboratorError(domain.CollaboratorCheckpoint, err)
		}
		if ok {
			p.metrics.CheckpointReused.Inc()
			p.finish(r)
			return r, nil
		}
	}

	r, err := p.transformer.Transform(ctx, post)
	if err != nil {
		return domain.TweetRecord{}, err
	}

	if cp != nil {
		if err := cp.Save(ctx, r); err != nil {
			return domain.TweetRecord{}, domain.NewCollaboratorError(domain.CollaboratorCheckpoint, err)
		}
	}
	p.finish(r)
	return r, nil
}

func (p *Pipeline) finish(r domain.TweetRecord) {
	p.metrics.RecordsProcessed.WithLabelValues(string(r.Geo.Status)).Inc()
	p.processed.Add(1)
	p.ready.Store(true)
	if p.opts.OnRecord != nil {
		p.opts.OnRecord(r)
	}
}
