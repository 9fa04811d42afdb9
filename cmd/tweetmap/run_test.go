package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/geocache"
	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/yandex"
	"github.com/couchcryptid/tweet-mapper-etl/internal/config"
	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
	"github.com/couchcryptid/tweet-mapper-etl/internal/observability"
)

const postsJSONL = `{"id":"1","text":"Bugün İst. Taksim meydanında, büyük bir kalabalık vardı","created_at":"2024-03-01T10:00:00Z"}
{"id":"2","text":"bugün","created_at":"2024-03-01T10:05:00Z"}
{"id":"3","text":"bugün kadıköy rıhtım cd. üzerinde, kaza","created_at":"2024-03-01T10:10:00Z"}
`

// yandexStub answers Taksim with a point and everything else with nothing.
func yandexStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		members := ""
		if strings.Contains(r.URL.Query().Get("geocode"), "taksim") {
			members = `{"GeoObject":{"name":"Taksim","Point":{"pos":"28.98 41.03"}}}`
		}
		_, _ = fmt.Fprintf(w, `{"response":{"GeoObjectCollection":{"featureMember":[%s]}}}`, members)
	}))
}

func testConfig(t *testing.T, geocoderURL string) *config.Config {
	t.Helper()
	return &config.Config{
		GeocoderProvider: config.ProviderYandex,
		GeocoderBaseURL:  geocoderURL,
		YandexAPIKey:     "test",
		GeocodeLocale:    domain.DefaultLocale,
		GeocodeTimeout:   5 * time.Second,
		GeocodeCacheSize: 10,
		Concurrency:      2,
		MaxPosts:         100,
		OutputDir:        t.TempDir(),
		OutputFile:       "run",
		BatchSize:        50,
		ShutdownTimeout:  time.Second,
	}
}

func writePosts(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "posts.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(postsJSONL), 0o600))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunPipeline_FromPostFile(t *testing.T) {
	srv := yandexStub(t)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	var stdout bytes.Buffer

	err := runPipeline(context.Background(), cfg, writePosts(t), discardLogger(),
		observability.NewMetricsForTesting(), &stdout)
	require.NoError(t, err)

	path := filepath.Join(cfg.OutputDir, "run.xlsx")
	assert.Equal(t, "3 tweets parsed, 2 tweets have error.\nSaved Excel file to "+path+"\n", stdout.String())

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet := f.Sheet["Tweets"]
	require.NotNil(t, sheet)
	require.Len(t, sheet.Rows, 4)
	for i, want := range []string{"1", "2", "3"} {
		assert.Equal(t, want, sheet.Rows[i+1].Cells[0].String())
	}
	lat, err := sheet.Rows[1].Cells[1].Float()
	require.NoError(t, err)
	assert.InDelta(t, 41.03, lat, 1e-9)
}

func TestRunPipeline_CheckpointSurvivesRerun(t *testing.T) {
	srv := yandexStub(t)
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	cfg.CheckpointPath = filepath.Join(t.TempDir(), "checkpoint.db")
	posts := writePosts(t)

	require.NoError(t, runPipeline(context.Background(), cfg, posts, discardLogger(),
		observability.NewMetricsForTesting(), io.Discard))

	store, err := sqlite.Open(context.Background(), cfg.CheckpointPath)
	require.NoError(t, err)
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.Equal(t, 3, n)

	// Second run with the geocoder gone: every post comes from the checkpoint.
	srv.Close()
	var stdout bytes.Buffer
	require.NoError(t, runPipeline(context.Background(), cfg, posts, discardLogger(),
		observability.NewMetricsForTesting(), &stdout))
	assert.Contains(t, stdout.String(), "3 tweets parsed, 2 tweets have error.")
}

func TestRunPipeline_GeocoderFailurePrintsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := testConfig(t, srv.URL)
	var stdout bytes.Buffer
	err := runPipeline(context.Background(), cfg, writePosts(t), discardLogger(),
		observability.NewMetricsForTesting(), &stdout)

	var ce *domain.CollaboratorError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.CollaboratorGeocoder, ce.Collaborator)
	assert.Empty(t, stdout.String())
	_, statErr := os.Stat(filepath.Join(cfg.OutputDir, "run.xlsx"))
	assert.True(t, os.IsNotExist(statErr), "no workbook after a failed run")
}

func TestRunPipeline_TimelineRequiresToken(t *testing.T) {
	cfg := testConfig(t, "http://unused")
	cfg.TwitterAccount = "140journos"

	err := runPipeline(context.Background(), cfg, "", discardLogger(),
		observability.NewMetricsForTesting(), io.Discard)
	require.ErrorContains(t, err, "TWITTER_BEARER_TOKEN")
}

func TestRunFlags_Apply(t *testing.T) {
	cfg := &config.Config{TwitterAccount: "140journos", MaxPosts: 5000, OutputFile: "env"}
	runFlags{account: "haberistanbul", output: "flag", maxPosts: 10}.apply(cfg)

	assert.Equal(t, "haberistanbul", cfg.TwitterAccount)
	assert.Equal(t, "flag", cfg.OutputFile)
	assert.Equal(t, 10, cfg.MaxPosts)

	runFlags{}.apply(cfg)
	assert.Equal(t, "haberistanbul", cfg.TwitterAccount)
}

func TestBuildGeocoder(t *testing.T) {
	cfg := &config.Config{GeocoderProvider: config.ProviderMapbox, GeocodeTimeout: time.Second}
	g, err := buildGeocoder(cfg, observability.NewMetricsForTesting(), discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &mapbox.Client{}, g)

	cfg = &config.Config{GeocoderProvider: config.ProviderYandex, GeocodeTimeout: time.Second}
	g, err = buildGeocoder(cfg, observability.NewMetricsForTesting(), discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &yandex.Client{}, g)

	cfg.GeocodeRateLimit = 5
	g, err = buildGeocoder(cfg, observability.NewMetricsForTesting(), discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &geocache.RateLimitedGeocoder{}, g)

	cfg.GeocodeCacheSize = 100
	g, err = buildGeocoder(cfg, observability.NewMetricsForTesting(), discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &geocache.CachedGeocoder{}, g)

	cfg = &config.Config{GeocoderProvider: "nominatim"}
	_, err = buildGeocoder(cfg, observability.NewMetricsForTesting(), discardLogger())
	require.Error(t, err)
}
