package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
)

// TweetTransformer implements Transformer: it lower-cases the post with
// Turkish rules, extracts the address, and resolves it.
type TweetTransformer struct {
	extractor *domain.Extractor
	geocoder  domain.Geocoder
	locale    string
	logger    *slog.Logger
}

// NewTransformer creates a TweetTransformer. A nil extractor selects the
// default Turkish table; an empty locale selects domain.DefaultLocale.
func NewTransformer(extractor *domain.Extractor, geocoder domain.Geocoder, locale string, logger *slog.Logger) *TweetTransformer {
	if extractor == nil {
		extractor = domain.NewExtractor(nil)
	}
	if locale == "" {
		locale = domain.DefaultLocale
	}
	return &TweetTransformer{
		extractor: extractor,
		geocoder:  geocoder,
		locale:    locale,
		logger:    logger,
	}
}

func (t *TweetTransformer) Transform(ctx context.Context, post domain.Post) (domain.TweetRecord, error) {
	address := t.extractor.Extract(domain.LowerText(post.Body))

	geo, err := domain.ResolveAddress(ctx, address, t.geocoder, t.locale)
	if err != nil {
		return domain.TweetRecord{}, fmt.Errorf("post %s: %w", post.ID, err)
	}

	r := domain.NewTweetRecord(post, address, geo)
	t.logger.Debug("tweet mapped",
		"post_id", r.ID,
		"address", address,
		"point", fmt.Sprintf("%g,%g", r.Lat(), r.Lng()),
		"status", geo.Status,
	)
	return r, nil
}
