package insight

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/video-insight-backend/internal/data/repos"
	"github.com/yungbote/video-insight-backend/internal/data/repos/testutil"
	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
	"github.com/yungbote/video-insight-backend/internal/platform/dbctx"
)

const validSummaryJSON = `{"summary":"A greeting video.","main_points":[{"timestamp":"01:35","title":"World","description":"The speaker says world."}]}`

const validTopicsJSON = "```json\n" + `{"topics":[{"name":"Greetings","description":"Saying hello","mentions":[{"timestamp":"00:00","context":"Hello"}]}]}` + "\n```"

type fakeCaptions struct {
	mu       sync.Mutex
	captions []types.Caption
	err      error
	calls    int
}

func (f *fakeCaptions) Fetch(ctx context.Context, videoKey string) ([]types.Caption, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.captions, nil
}

func (f *fakeCaptions) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGen struct {
	mu        sync.Mutex
	responses []string
	err       error
	delay     time.Duration
	prompts   []string
}

func (f *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return "", f.err
	}
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func (f *fakeGen) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

var helloWorld = []types.Caption{{OffsetMs: 0, Text: "Hello"}, {OffsetMs: 95000, Text: "World"}}

type harness struct {
	svc      *Service
	orch     *Orchestrator
	repo     repos.InsightRecordRepo
	captions *fakeCaptions
	gen      *fakeGen
}

func newHarness(t *testing.T, gen *fakeGen, wrap func(repos.InsightRecordRepo) repos.InsightRecordRepo) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	base := repos.NewInsightRecordRepo(db, log)
	repo := base
	if wrap != nil {
		repo = wrap(base)
	}
	caps := &fakeCaptions{captions: helloWorld}
	orch := NewOrchestrator(OrchestratorDeps{
		Log:      log,
		Records:  repo,
		Captions: caps,
		Gen:      gen,
	}, Config{CaptionTimeout: time.Second, GenerationTimeout: time.Second})
	return &harness{
		svc:      NewService(log, orch),
		orch:     orch,
		repo:     base,
		captions: caps,
		gen:      gen,
	}
}

func (h *harness) record(t *testing.T, key string) *types.Record {
	t.Helper()
	rec, err := h.repo.GetByVideoKey(dbctx.From(context.Background()), key)
	if err != nil {
		t.Fatalf("GetByVideoKey(%s): %v", key, err)
	}
	return rec
}

func (h *harness) seed(t *testing.T, rec *types.Record) *types.Record {
	t.Helper()
	out, err := h.repo.Create(dbctx.From(context.Background()), rec)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return out
}

func summaryRecord(t *testing.T, key string) *types.Record {
	return &types.Record{
		VideoKey: key,
		VideoURL: "https://www.youtube.com/watch?v=" + key,
		Summary:  "Cached summary",
		MainPoints: testutil.MustJSON(t, []types.MainPoint{
			{Timestamp: "00:05", Title: "Cached", Description: "From the store"},
		}),
	}
}

func topicsRecordFields(t *testing.T, rec *types.Record) *types.Record {
	rec.Transcript = testutil.MustJSON(t, []types.TranscriptLine{{Timestamp: "00:00", Text: "Old"}})
	rec.Topics = testutil.MustJSON(t, []types.Topic{{
		Name: "Old topic", Description: "kept", Mentions: []types.Mention{{Timestamp: "00:00", Context: "Old"}},
	}})
	return rec
}

func TestEndToEndSummary(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{validSummaryJSON}}, nil)

	resp, status := h.svc.Summary(context.Background(), "https://www.youtube.com/watch?v=abc")
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("Summary: status=%d resp=%+v", status, resp)
	}
	data, ok := resp.Data.(*types.SummaryResult)
	if !ok {
		t.Fatalf("Summary: data type %T", resp.Data)
	}
	if data.MainPoints[0].Timestamp != "01:35" {
		t.Fatalf("returned timestamp=%q want 01:35", data.MainPoints[0].Timestamp)
	}

	rec := h.record(t, "abc")
	if rec == nil {
		t.Fatal("expected record to be persisted")
	}
	points, err := rec.DecodeMainPoints()
	if err != nil || len(points) != 1 || points[0].Timestamp != "01:35" {
		t.Fatalf("persisted main_points=%+v err=%v", points, err)
	}
	if rec.VideoURL != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("persisted video_url=%q", rec.VideoURL)
	}
	if h.gen.Calls() != 1 {
		t.Fatalf("generator calls=%d want 1", h.gen.Calls())
	}
	if !strings.Contains(h.gen.prompts[0], "[01:35] World") {
		t.Fatalf("strict prompt missing rendered caption:\n%s", h.gen.prompts[0])
	}
}

func TestCacheHitIdempotence(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{validSummaryJSON}}, nil)
	h.seed(t, summaryRecord(t, "abc"))

	first, status := h.svc.Summary(context.Background(), "https://youtu.be/abc")
	if status != http.StatusOK {
		t.Fatalf("first run: status=%d resp=%+v", status, first)
	}
	second, status := h.svc.Summary(context.Background(), "https://www.youtube.com/watch?v=abc&si=x")
	if status != http.StatusOK {
		t.Fatalf("second run: status=%d resp=%+v", status, second)
	}

	a, _ := json.Marshal(first.Data)
	b, _ := json.Marshal(second.Data)
	if string(a) != string(b) {
		t.Fatalf("cache hits differ:\n%s\n%s", a, b)
	}
	if !strings.Contains(string(a), "Cached summary") {
		t.Fatalf("expected cached data, got %s", a)
	}
	if h.gen.Calls() != 0 || h.captions.Calls() != 0 {
		t.Fatalf("cache hit invoked generator=%d captions=%d", h.gen.Calls(), h.captions.Calls())
	}
}

func TestStaleRecordPurgedNotMerged(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{validSummaryJSON}}, nil)
	stale := h.seed(t, &types.Record{
		VideoKey:   "abc",
		VideoURL:   "https://www.youtube.com/watch?v=abc",
		Summary:    "",
		MainPoints: testutil.MustJSON(t, []types.MainPoint{}),
		Transcript: testutil.MustJSON(t, []types.TranscriptLine{{Timestamp: "00:00", Text: "partial"}}),
	})

	if _, status := h.svc.Summary(context.Background(), "https://www.youtube.com/watch?v=abc"); status != http.StatusOK {
		t.Fatalf("Summary: status=%d", status)
	}
	if h.gen.Calls() != 1 {
		t.Fatalf("generator calls=%d want 1", h.gen.Calls())
	}

	rec := h.record(t, "abc")
	if rec == nil {
		t.Fatal("expected recomputed record")
	}
	if rec.ID == stale.ID {
		t.Fatal("stale record was not deleted before recompute")
	}
	if rec.Summary != "A greeting video." {
		t.Fatalf("summary=%q", rec.Summary)
	}
	// partial transcript belonged to a record invalid for topics; it must not survive
	if lines, _ := rec.DecodeTranscript(); len(lines) != 0 {
		t.Fatalf("stale transcript merged into new record: %+v", lines)
	}
}

func TestStaleRecordCarriesValidOtherKind(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{validSummaryJSON}}, nil)
	h.seed(t, topicsRecordFields(t, &types.Record{VideoKey: "abc", VideoURL: "https://youtu.be/abc"}))

	if _, status := h.svc.Summary(context.Background(), "https://youtu.be/abc"); status != http.StatusOK {
		t.Fatalf("Summary: status=%d", status)
	}
	rec := h.record(t, "abc")
	if !rec.ValidFor(types.KindSummary) || !rec.ValidFor(types.KindTopics) {
		t.Fatalf("expected record valid for both kinds: %+v", rec)
	}

	// the topics request is now a cache hit
	resp, status := h.svc.Topics(context.Background(), "https://youtu.be/abc")
	if status != http.StatusOK || h.gen.Calls() != 1 {
		t.Fatalf("Topics: status=%d generator calls=%d", status, h.gen.Calls())
	}
	if data := resp.Data.(*types.TopicResult); data.Topics[0].Name != "Old topic" {
		t.Fatalf("Topics: unexpected cached data %+v", data)
	}
}

type failingDeleteRepo struct {
	repos.InsightRecordRepo
}

func (r failingDeleteRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return errors.New("delete refused")
}

func TestStaleDeleteFailureOverwritesByID(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{validSummaryJSON}}, func(r repos.InsightRecordRepo) repos.InsightRecordRepo {
		return failingDeleteRepo{r}
	})
	stale := h.seed(t, &types.Record{
		VideoKey:   "abc",
		VideoURL:   "https://youtu.be/abc",
		Summary:    "",
		Transcript: testutil.MustJSON(t, []types.TranscriptLine{{Timestamp: "00:00", Text: "partial"}}),
	})

	if resp, status := h.svc.Summary(context.Background(), "https://www.youtube.com/watch?v=abc"); status != http.StatusOK {
		t.Fatalf("Summary: status=%d resp=%+v", status, resp)
	}
	rec := h.record(t, "abc")
	if rec.ID != stale.ID {
		t.Fatalf("expected overwrite of id %s, got %s", stale.ID, rec.ID)
	}
	if !rec.ValidFor(types.KindSummary) {
		t.Fatalf("overwritten record invalid: %+v", rec)
	}
	if lines, _ := rec.DecodeTranscript(); len(lines) != 0 {
		t.Fatalf("stale transcript survived overwrite: %+v", lines)
	}
	if rec.VideoURL != "https://www.youtube.com/watch?v=abc" {
		t.Fatalf("video_url=%q", rec.VideoURL)
	}
}

type missOnceRepo struct {
	repos.InsightRecordRepo
	mu     sync.Mutex
	missed bool
}

func (r *missOnceRepo) GetByVideoKey(dbc dbctx.Context, key string) (*types.Record, error) {
	r.mu.Lock()
	first := !r.missed
	r.missed = true
	r.mu.Unlock()
	if first {
		return nil, nil
	}
	return r.InsightRecordRepo.GetByVideoKey(dbc, key)
}

func TestDuplicateKeyOnCreateOverwrites(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{validSummaryJSON}}, func(r repos.InsightRecordRepo) repos.InsightRecordRepo {
		return &missOnceRepo{InsightRecordRepo: r}
	})
	existing := h.seed(t, topicsRecordFields(t, &types.Record{VideoKey: "abc", VideoURL: "https://youtu.be/abc"}))

	if resp, status := h.svc.Summary(context.Background(), "https://youtu.be/abc"); status != http.StatusOK {
		t.Fatalf("Summary: status=%d resp=%+v", status, resp)
	}
	rec := h.record(t, "abc")
	if rec.ID != existing.ID {
		t.Fatalf("expected existing record to be updated, got new id %s", rec.ID)
	}
	if !rec.ValidFor(types.KindSummary) || !rec.ValidFor(types.KindTopics) {
		t.Fatalf("expected summary written onto existing record: %+v", rec)
	}
}

func TestSingleRetryBound(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{"I cannot help with that.", "```json\n{\"summary\": \n```"}}, nil)

	resp, status := h.svc.Summary(context.Background(), "https://www.youtube.com/watch?v=abc")
	if status != http.StatusInternalServerError || resp.Success || resp.Message == "" {
		t.Fatalf("Summary: status=%d resp=%+v", status, resp)
	}
	if h.gen.Calls() != 2 {
		t.Fatalf("generator calls=%d want exactly 2", h.gen.Calls())
	}

	_, err := h.orch.Run(context.Background(), types.KindSummary, "https://youtu.be/abc")
	if !errors.Is(err, ErrAnalysisFailed) {
		t.Fatalf("Run: want ErrAnalysisFailed, got %v", err)
	}
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageValidateFallback {
		t.Fatalf("Run: want StageError at validate_fallback, got %v", err)
	}
	if h.gen.Calls() != 4 {
		t.Fatalf("generator calls=%d want 4 after two runs", h.gen.Calls())
	}
	if rec := h.record(t, "abc"); rec != nil {
		t.Fatalf("failed run persisted a record: %+v", rec)
	}
}

func TestFallbackRecovers(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{`{"summary":"x","main_points":[]}`, validSummaryJSON}}, nil)

	resp, status := h.svc.Summary(context.Background(), "https://youtu.be/abc")
	if status != http.StatusOK || !resp.Success {
		t.Fatalf("Summary: status=%d resp=%+v", status, resp)
	}
	if h.gen.Calls() != 2 {
		t.Fatalf("generator calls=%d want 2", h.gen.Calls())
	}
	if strings.Contains(h.gen.prompts[1], "Example response") || len(h.gen.prompts[1]) >= len(h.gen.prompts[0]) {
		t.Fatal("second call did not use the fallback prompt")
	}
}

func TestGenerationFailureIsTerminal(t *testing.T) {
	h := newHarness(t, &fakeGen{err: errors.New("quota exceeded")}, nil)

	_, err := h.orch.Run(context.Background(), types.KindSummary, "https://youtu.be/abc")
	if !errors.Is(err, ErrGenerationFailure) {
		t.Fatalf("Run: want ErrGenerationFailure, got %v", err)
	}
	if h.gen.Calls() != 1 {
		t.Fatalf("generator calls=%d want 1", h.gen.Calls())
	}
	_, status := h.svc.Summary(context.Background(), "https://youtu.be/abc")
	if status != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", status)
	}
}

func TestGenerationTimeoutTagged(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{validSummaryJSON}, delay: time.Second}, nil)
	h.orch.cfg.GenerationTimeout = 20 * time.Millisecond

	_, err := h.orch.Run(context.Background(), types.KindSummary, "https://youtu.be/abc")
	var se *StageError
	if !errors.As(err, &se) {
		t.Fatalf("Run: want StageError, got %v", err)
	}
	if !se.Timeout || se.Stage != StageGenerateStrict || !errors.Is(err, ErrGenerationFailure) {
		t.Fatalf("Run: unexpected stage error %+v", se)
	}
}

func TestInvalidIdentifierRejectedBeforeIO(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{validSummaryJSON}}, nil)

	for _, kind := range []types.Kind{types.KindSummary, types.KindTopics} {
		for _, in := range []string{"https://vimeo.com/12345", "hello", "x", "not-a-video-url"} {
			resp, status := h.svc.Handle(context.Background(), kind, in)
			if status != http.StatusBadRequest || resp.Success {
				t.Fatalf("%s %q: status=%d resp=%+v", kind, in, status, resp)
			}
		}
		resp, status := h.svc.Handle(context.Background(), kind, "  ")
		if status != http.StatusBadRequest || resp.Message != "Video URL is required" {
			t.Fatalf("%s empty: status=%d resp=%+v", kind, status, resp)
		}
	}
	if h.captions.Calls() != 0 || h.gen.Calls() != 0 {
		t.Fatalf("invalid input reached captions=%d generator=%d", h.captions.Calls(), h.gen.Calls())
	}
}

func TestCaptionUnavailable(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{validSummaryJSON}}, nil)
	h.captions.err = types.ErrCaptionUnavailable

	resp, status := h.svc.Topics(context.Background(), "https://youtu.be/abc")
	if status != http.StatusInternalServerError || resp.Success {
		t.Fatalf("Topics: status=%d resp=%+v", status, resp)
	}
	if h.gen.Calls() != 0 {
		t.Fatalf("generator called %d times after caption failure", h.gen.Calls())
	}

	h.captions.err = nil
	h.captions.captions = nil
	_, err := h.orch.Run(context.Background(), types.KindTopics, "https://youtu.be/abc")
	if !errors.Is(err, ErrCaptionUnavailable) {
		t.Fatalf("empty captions: want ErrCaptionUnavailable, got %v", err)
	}
}

func TestTopicsPipeline(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{validTopicsJSON}}, nil)

	resp, status := h.svc.Topics(context.Background(), "https://www.youtube.com/watch?v=abc")
	if status != http.StatusOK {
		t.Fatalf("Topics: status=%d resp=%+v", status, resp)
	}
	data := resp.Data.(*types.TopicResult)
	want := []types.TranscriptLine{{Timestamp: "00:00", Text: "Hello"}, {Timestamp: "01:35", Text: "World"}}
	if len(data.Transcript) != 2 || data.Transcript[0] != want[0] || data.Transcript[1] != want[1] {
		t.Fatalf("transcript=%+v", data.Transcript)
	}
	rec := h.record(t, "abc")
	if !rec.ValidFor(types.KindTopics) || rec.ValidFor(types.KindSummary) {
		t.Fatalf("persisted record validity unexpected: %+v", rec)
	}
}

func TestConcurrentSameKeyGeneratesOnce(t *testing.T) {
	h := newHarness(t, &fakeGen{responses: []string{validSummaryJSON}, delay: 10 * time.Millisecond}, nil)

	const n = 6
	var wg sync.WaitGroup
	statuses := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, statuses[i] = h.svc.Summary(context.Background(), "https://www.youtube.com/watch?v=abc")
		}(i)
	}
	wg.Wait()

	for i, s := range statuses {
		if s != http.StatusOK {
			t.Fatalf("request %d: status=%d", i, s)
		}
	}
	if h.gen.Calls() != 1 {
		t.Fatalf("generator calls=%d want 1 for concurrent same-key requests", h.gen.Calls())
	}
}
