package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bilgisen/newscurator/internal/config"
	"github.com/bilgisen/newscurator/internal/extract"
	"github.com/bilgisen/newscurator/internal/feed"
	"github.com/bilgisen/newscurator/internal/filter"
	"github.com/bilgisen/newscurator/internal/models"
	"github.com/bilgisen/newscurator/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const body = "Исследователи показали, что микробиом кишечника меняется уже через неделю после смены питания."

type fakeReader map[string]feed.ReadResult

func (f fakeReader) Read(ctx context.Context, url string) feed.ReadResult {
	if res, ok := f[url]; ok {
		res.FeedURL = url
		return res
	}
	return feed.ReadResult{FeedURL: url, Err: errors.New("no such feed")}
}

type fakeExtractor struct {
	mu      sync.Mutex
	results map[string]extract.Result
	calls   []string
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) extract.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if res, ok := f.results[url]; ok {
		res.URL = url
		if res.ResolvedURL == "" {
			res.ResolvedURL = url
		}
		return res
	}
	return extract.Result{URL: url, ResolvedURL: url, Outcome: extract.OutcomeFetchFailed, Err: errors.New("unreachable")}
}

func okResult(text, image string) extract.Result {
	return extract.Result{Text: text, ImageURL: image, Outcome: extract.OutcomeOK}
}

func entries(es ...models.FeedEntry) feed.ReadResult {
	return feed.ReadResult{Entries: es, Total: len(es)}
}

func testKeywords() filter.Keywords {
	return filter.Keywords{
		Allow: []string{"микробиом", "диет", "витамин"},
		Block: []string{"скандал", "актрис"},
	}
}

type harness struct {
	candidates *storage.Memory
	extractor  *fakeExtractor
	processor  *Processor
}

func newHarness(t *testing.T, reader fakeReader, results map[string]extract.Result, feeds []config.Feed, existing ...[]string) *harness {
	t.Helper()
	nop := zerolog.Nop()
	h := &harness{
		candidates: storage.NewMemory(models.CandidateColumns, existing...),
		extractor:  &fakeExtractor{results: results},
	}
	h.processor = NewProcessor(Deps{
		Reader:     reader,
		Extractor:  h.extractor,
		Filter:     filter.New(testKeywords()),
		Candidates: h.candidates,
		Feeds:      feeds,
		Logger:     &nop,
	})
	return h
}

func feeds(urls ...string) []config.Feed {
	out := make([]config.Feed, len(urls))
	for i, u := range urls {
		out[i] = config.Feed{URL: u}
	}
	return out
}

func TestRunInsertsRelevantArticle(t *testing.T) {
	h := newHarness(t,
		fakeReader{"http://feed/a": entries(models.FeedEntry{Title: "Новое исследование микробиома кишечника", Link: "http://site/1"})},
		map[string]extract.Result{"http://site/1": okResult(body, "http://site/1.jpg")},
		feeds("http://feed/a"),
	)

	summary, err := h.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Added)

	assert.Equal(t, [][]string{{"new", "Новое исследование микробиома кишечника", body, "http://site/1.jpg", "http://site/1", ""}}, h.candidates.Values())
}

func TestRunRejectsBlockedTitle(t *testing.T) {
	h := newHarness(t,
		fakeReader{"http://feed/a": entries(models.FeedEntry{Title: "Скандал актрисы и диета", Link: "http://site/2"})},
		nil,
		feeds("http://feed/a"),
	)

	summary, err := h.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Added)
	assert.Equal(t, 1, summary.Skipped[SkipFilteredTitle])
	assert.Empty(t, h.candidates.Values())
	assert.Empty(t, h.extractor.calls)
}

func TestRunSkipsKnownURLWithoutFetching(t *testing.T) {
	h := newHarness(t,
		fakeReader{"http://feed/a": entries(models.FeedEntry{Title: "Витамин D и микробиом", Link: "http://site/1"})},
		map[string]extract.Result{"http://site/1": okResult(body, "")},
		feeds("http://feed/a"),
		[]string{"done", "old", "x", "", "http://site/1", ""},
	)

	summary, err := h.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Added)
	assert.Equal(t, 1, summary.Skipped[SkipDuplicate])
	assert.Empty(t, h.extractor.calls)
	assert.Len(t, h.candidates.Values(), 1)
}

func TestRunTwiceAddsNothingNew(t *testing.T) {
	reader := fakeReader{
		"http://feed/a": entries(
			models.FeedEntry{Title: "Микробиом и сон", Link: "http://site/1"},
			models.FeedEntry{Title: "Витамин C", Link: "http://site/2"},
		),
		"http://feed/b": entries(models.FeedEntry{Title: "Микробиом и сон (перепечатка)", Link: "http://site/1"}),
	}
	results := map[string]extract.Result{
		"http://site/1": okResult(body, ""),
		"http://site/2": okResult("Витамин C "+body, ""),
	}
	h := newHarness(t, reader, results, feeds("http://feed/a", "http://feed/b"))

	first, err := h.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Added)
	assert.Equal(t, 1, first.Skipped[SkipDuplicate])

	second, err := h.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Added)
	assert.Equal(t, 3, second.Skipped[SkipDuplicate])
	assert.Len(t, h.candidates.Values(), 2)
}

func TestRunMarksResolvedURL(t *testing.T) {
	reader := fakeReader{
		"http://aggregator/feed": entries(
			models.FeedEntry{Title: "Микробиом: обзор", Link: "http://aggregator/wrap/1"},
			models.FeedEntry{Title: "Микробиом: обзор (копия)", Link: "http://aggregator/wrap/2"},
		),
		"http://publisher/feed": entries(models.FeedEntry{Title: "Микробиом: обзор", Link: "http://publisher/story"}),
	}
	results := map[string]extract.Result{
		"http://aggregator/wrap/1": {ResolvedURL: "http://publisher/story", Text: body, Outcome: extract.OutcomeOK},
		"http://aggregator/wrap/2": {ResolvedURL: "http://publisher/story", Text: body, Outcome: extract.OutcomeOK},
		"http://publisher/story":   okResult(body, ""),
	}
	h := newHarness(t, reader, results, []config.Feed{
		{URL: "http://aggregator/feed", Resolve: true},
		{URL: "http://publisher/feed"},
	})

	summary, err := h.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 2, summary.Skipped[SkipDuplicate])

	values := h.candidates.Values()
	require.Len(t, values, 1)
	assert.Equal(t, "http://publisher/story", values[0][4])
	assert.NotContains(t, h.extractor.calls, "http://publisher/story")
}

func TestRunUsesResolvingExtractorPerFeed(t *testing.T) {
	plain := &fakeExtractor{results: map[string]extract.Result{"http://site/1": okResult(body, "")}}
	resolving := &fakeExtractor{results: map[string]extract.Result{"http://wrap/2": okResult(body, "")}}
	nop := zerolog.Nop()

	p := NewProcessor(Deps{
		Reader: fakeReader{
			"http://feed/plain": entries(models.FeedEntry{Title: "Микробиом 1", Link: "http://site/1"}),
			"http://feed/wrap":  entries(models.FeedEntry{Title: "Микробиом 2", Link: "http://wrap/2"}),
		},
		Extractor:  plain,
		Resolving:  resolving,
		Filter:     filter.New(testKeywords()),
		Candidates: storage.NewMemory(models.CandidateColumns),
		Feeds:      []config.Feed{{URL: "http://feed/plain"}, {URL: "http://feed/wrap", Resolve: true}},
		Logger:     &nop,
	})

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"http://site/1"}, plain.calls)
	assert.Equal(t, []string{"http://wrap/2"}, resolving.calls)
}

func TestRunFallsBackToFeedSummaryAndImage(t *testing.T) {
	entry := models.FeedEntry{
		Title:      "Витамин D зимой",
		Link:       "http://site/3",
		Summary:    "<p>Врачи советуют принимать <b>витамин D</b> зимой.</p>",
		Enclosures: []models.Enclosure{{Type: "image/jpeg", Href: "http://site/3.jpg"}},
	}
	h := newHarness(t, fakeReader{"http://feed/a": entries(entry)}, nil, feeds("http://feed/a"))

	summary, err := h.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, summary.ExtractFailed)

	values := h.candidates.Values()
	require.Len(t, values, 1)
	assert.Equal(t, "Врачи советуют принимать витамин D зимой.", values[0][2])
	assert.Equal(t, "http://site/3.jpg", values[0][3])
}

func TestRunEmptyBodyPolicy(t *testing.T) {
	reader := fakeReader{"http://feed/a": entries(models.FeedEntry{Title: "Диета без текста", Link: "http://site/4"})}
	results := map[string]extract.Result{"http://site/4": {Outcome: extract.OutcomeEmpty}}

	t.Run("drop", func(t *testing.T) {
		h := newHarness(t, reader, results, feeds("http://feed/a"))
		summary, err := h.processor.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, summary.Added)
		assert.Equal(t, 1, summary.Skipped[SkipEmptyBody])
		assert.Zero(t, summary.ExtractFailed)
	})

	t.Run("keep", func(t *testing.T) {
		h := newHarness(t, reader, results, feeds("http://feed/a"))
		h.processor.deps.EmptyBody = config.EmptyBodyKeep

		summary, err := h.processor.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Added)
		assert.Equal(t, "", h.candidates.Values()[0][2])
	})
}

func TestRunRejectsBlockedBody(t *testing.T) {
	h := newHarness(t,
		fakeReader{"http://feed/a": entries(models.FeedEntry{Title: "Диета звезды", Link: "http://site/5"})},
		map[string]extract.Result{"http://site/5": okResult("Громкий скандал вокруг новой диеты продолжается уже неделю.", "")},
		feeds("http://feed/a"),
	)

	summary, err := h.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Added)
	assert.Equal(t, 1, summary.Skipped[SkipFilteredBody])
}

func TestRunContinuesAfterFeedFailure(t *testing.T) {
	h := newHarness(t,
		fakeReader{"http://feed/b": entries(models.FeedEntry{Title: "Микробиом", Link: "http://site/1"})},
		map[string]extract.Result{"http://site/1": okResult(body, "")},
		feeds("http://feed/missing", "http://feed/b"),
	)

	summary, err := h.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Feeds)
	assert.Equal(t, 1, summary.FeedFailures)
	assert.Equal(t, 1, summary.Added)
}

func TestRunSkipsInvalidEntries(t *testing.T) {
	h := newHarness(t,
		fakeReader{"http://feed/a": entries(
			models.FeedEntry{Title: "Микробиом без ссылки"},
			models.FeedEntry{Title: "Микробиом с относительной ссылкой", Link: "/relative"},
		)},
		map[string]extract.Result{"/relative": okResult(body, "")},
		feeds("http://feed/a"),
	)

	summary, err := h.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Added)
	assert.Equal(t, 2, summary.Skipped[SkipInvalid])
}

type failingTable struct {
	*storage.Memory
}

func (failingTable) AppendRow(ctx context.Context, values []string) error {
	return errors.New("quota exceeded")
}

func TestRunAbortsOnStoreFailure(t *testing.T) {
	nop := zerolog.Nop()
	p := NewProcessor(Deps{
		Reader: fakeReader{"http://feed/a": entries(
			models.FeedEntry{Title: "Микробиом 1", Link: "http://site/1"},
			models.FeedEntry{Title: "Микробиом 2", Link: "http://site/2"},
		)},
		Extractor:  &fakeExtractor{results: map[string]extract.Result{"http://site/1": okResult(body, ""), "http://site/2": okResult(body, "")}},
		Filter:     filter.New(testKeywords()),
		Candidates: failingTable{storage.NewMemory(models.CandidateColumns)},
		Feeds:      feeds("http://feed/a"),
		Logger:     &nop,
	})

	summary, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Equal(t, 1, summary.Entries)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	h := newHarness(t, fakeReader{}, nil, feeds("http://feed/a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.processor.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
