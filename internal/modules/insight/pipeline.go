package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/video-insight-backend/internal/data/repos"
	types "github.com/yungbote/video-insight-backend/internal/domain/insight"
	"github.com/yungbote/video-insight-backend/internal/modules/insight/prompts"
	"github.com/yungbote/video-insight-backend/internal/platform/ctxutil"
	"github.com/yungbote/video-insight-backend/internal/platform/dbctx"
	"github.com/yungbote/video-insight-backend/internal/platform/keylock"
	"github.com/yungbote/video-insight-backend/internal/platform/logger"
	"github.com/yungbote/video-insight-backend/internal/platform/youtube"
)

type CaptionSource interface {
	Fetch(ctx context.Context, videoKey string) ([]types.Caption, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	CaptionTimeout    time.Duration
	GenerationTimeout time.Duration
}

type OrchestratorDeps struct {
	Log      *logger.Logger
	Records  repos.InsightRecordRepo
	Captions CaptionSource
	Gen      Generator
	Locker   keylock.Locker
}

// Orchestrator runs the insight pipeline for one request kind:
// check cache, fetch captions, generate with the strict prompt, validate,
// retry once with the fallback prompt, persist.
type Orchestrator struct {
	log      *logger.Logger
	records  repos.InsightRecordRepo
	captions CaptionSource
	gen      Generator
	locker   keylock.Locker
	cfg      Config
	tracer   trace.Tracer
}

func NewOrchestrator(deps OrchestratorDeps, cfg Config) *Orchestrator {
	if cfg.CaptionTimeout <= 0 {
		cfg.CaptionTimeout = 30 * time.Second
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 90 * time.Second
	}
	locker := deps.Locker
	if locker == nil {
		locker = keylock.NewLocal()
	}
	return &Orchestrator{
		log:      deps.Log.With("service", "InsightOrchestrator"),
		records:  deps.Records,
		captions: deps.Captions,
		gen:      deps.Gen,
		locker:   locker,
		cfg:      cfg,
		tracer:   otel.Tracer("github.com/yungbote/video-insight-backend/internal/modules/insight"),
	}
}

// Result is the outcome of a successful run. Exactly one of Summary or
// Topics is set, matching Kind.
type Result struct {
	Kind     types.Kind
	VideoKey string
	Cached   bool
	Summary  *types.SummaryResult
	Topics   *types.TopicResult
}

// Data returns the payload served to callers for the result's kind.
func (r *Result) Data() interface{} {
	if r.Kind == types.KindSummary {
		return r.Summary
	}
	return r.Topics
}

type run struct {
	kind     types.Kind
	videoURL string
	videoKey string
	// set when a stale record could not be deleted; persist overwrites it by id
	staleID uuid.UUID
	// valid fields of the other kind from a purged record
	carry *types.Record
}

func (o *Orchestrator) Run(ctx context.Context, kind types.Kind, videoURL string) (*Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown insight kind %q", kind)
	}
	ctx, span := o.tracer.Start(ctx, "insight.run", trace.WithAttributes(attribute.String("insight.kind", kind.String())))
	defer span.End()

	res, err := o.run(ctx, kind, videoURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("insight.cached", res.Cached))
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, kind types.Kind, videoURL string) (*Result, error) {
	started := time.Now()

	// identifiers are validated before any lock, store or network work
	key, err := youtube.VideoKey(videoURL)
	if err != nil {
		return nil, &StageError{Stage: StageValidateInput, Kind: ErrInvalidIdentifier, Err: err}
	}
	r := &run{kind: kind, videoURL: strings.TrimSpace(videoURL), videoKey: key}
	log := o.log.With(append(ctxutil.LogFields(ctx), "kind", kind.String(), "video_key", key)...)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("insight.video_key", key))

	unlock, err := o.locker.Lock(ctx, key)
	if err != nil {
		return nil, &StageError{
			Stage:   StageAcquireLock,
			Timeout: errors.Is(err, context.DeadlineExceeded),
			Kind:    ErrPersistence,
			Err:     fmt.Errorf("acquire key lock: %w", err),
		}
	}
	defer unlock()

	if cached, err := o.checkCache(ctx, r, log); err != nil || cached != nil {
		return cached, err
	}

	captions, err := o.fetchCaptions(ctx, r)
	if err != nil {
		log.Warn("Caption fetch failed", "error", err)
		return nil, err
	}

	parsed, attempts, err := o.generate(ctx, r, captions, log)
	if err != nil {
		log.Warn("Analysis failed", "attempts", attempts, "error", err)
		return nil, err
	}

	res, err := o.persist(ctx, r, captions, parsed, log)
	if err != nil {
		log.Error("Persist failed", "error", err)
		return nil, err
	}
	log.Info("Insight computed",
		"attempts", attempts,
		"captions", len(captions),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return res, nil
}

func (o *Orchestrator) checkCache(ctx context.Context, r *run, log *logger.Logger) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "insight."+string(StageCheckCache))
	defer span.End()

	dbc := dbctx.From(ctx)
	rec, err := o.records.GetByVideoKey(dbc, r.videoKey)
	if err != nil {
		span.RecordError(err)
		return nil, &StageError{Stage: StageCheckCache, Kind: ErrPersistence, Err: err}
	}
	if rec == nil {
		span.SetAttributes(attribute.String("insight.cache", "miss"))
		return nil, nil
	}

	if rec.ValidFor(r.kind) {
		res, err := resultFromRecord(r.kind, rec)
		if err == nil {
			span.SetAttributes(attribute.String("insight.cache", "hit"))
			log.Debug("Cache hit")
			return res, nil
		}
		// ValidFor decoded the same columns, so this only happens on corrupt rows
		log.Warn("Cached record unreadable; recomputing", "error", err)
	}

	span.SetAttributes(attribute.String("insight.cache", "stale"))
	if rec.ValidFor(r.kind.Other()) {
		r.carry = rec
	}
	if err := o.records.Delete(dbc, rec.ID); err != nil {
		log.Warn("Stale record delete failed; will overwrite on persist", "record_id", rec.ID, "error", err)
		r.staleID = rec.ID
	} else {
		log.Info("Purged stale record", "record_id", rec.ID)
	}
	return nil, nil
}

func (o *Orchestrator) fetchCaptions(ctx context.Context, r *run) ([]types.Caption, error) {
	ctx, span := o.tracer.Start(ctx, "insight."+string(StageFetchCaptions))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CaptionTimeout)
	defer cancel()

	captions, err := o.captions.Fetch(callCtx, r.videoKey)
	if err == nil && len(captions) == 0 {
		err = fmt.Errorf("%w: empty caption track", ErrCaptionUnavailable)
	}
	if err != nil {
		span.RecordError(err)
		kind := ErrCaptionUnavailable
		if errors.Is(err, ErrInvalidIdentifier) {
			kind = ErrInvalidIdentifier
		}
		return nil, &StageError{Stage: StageFetchCaptions, Timeout: timedOut(callCtx, err), Kind: kind, Err: err}
	}
	span.SetAttributes(attribute.Int("insight.captions", len(captions)))
	return captions, nil
}

// generate runs the strict attempt and, only on a validation failure, one
// fallback attempt. It never calls the generator more than twice.
func (o *Orchestrator) generate(ctx context.Context, r *run, captions []types.Caption, log *logger.Logger) (*Parsed, int, error) {
	parsed, err := o.attempt(ctx, r.kind, captions, prompts.VariantStrict, StageGenerateStrict, StageValidateStrict)
	if err == nil {
		return parsed, 1, nil
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return nil, 1, err
	}
	log.Info("Strict output rejected; retrying with fallback prompt", "reason", ve.Reason, "field", ve.Field)

	parsed, err = o.attempt(ctx, r.kind, captions, prompts.VariantFallback, StageGenerateFallback, StageValidateFallback)
	if err == nil {
		return parsed, 2, nil
	}
	if errors.As(err, &ve) {
		return nil, 2, &StageError{Stage: StageValidateFallback, Kind: ErrAnalysisFailed, Err: err}
	}
	return nil, 2, err
}

func (o *Orchestrator) attempt(ctx context.Context, kind types.Kind, captions []types.Caption, variant prompts.Variant, genStage, valStage Stage) (*Parsed, error) {
	prompt, err := prompts.BuildPrompt(kind, captions, variant)
	if err != nil {
		return nil, &StageError{Stage: genStage, Kind: ErrGenerationFailure, Err: err}
	}

	raw, err := o.callGenerator(ctx, prompt, genStage)
	if err != nil {
		return nil, err
	}

	_, span := o.tracer.Start(ctx, "insight."+string(valStage))
	defer span.End()
	parsed, err := Validate(raw, kind)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return parsed, nil
}

func (o *Orchestrator) callGenerator(ctx context.Context, prompt string, stage Stage) (string, error) {
	ctx, span := o.tracer.Start(ctx, "insight."+string(stage))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.GenerationTimeout)
	defer cancel()

	raw, err := o.gen.Generate(callCtx, prompt)
	if err != nil {
		span.RecordError(err)
		return "", &StageError{Stage: stage, Timeout: timedOut(callCtx, err), Kind: ErrGenerationFailure, Err: err}
	}
	span.SetAttributes(attribute.Int("insight.response_bytes", len(raw)))
	return raw, nil
}

func (o *Orchestrator) persist(ctx context.Context, r *run, captions []types.Caption, parsed *Parsed, log *logger.Logger) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "insight."+string(StagePersist))
	defer span.End()

	res := &Result{Kind: r.kind, VideoKey: r.videoKey}
	own, err := ownFields(r.kind, captions, parsed, res)
	if err != nil {
		return nil, &StageError{Stage: StagePersist, Kind: ErrPersistence, Err: err}
	}

	// full row content: new fields for this kind, carried fields for the
	// other kind, nothing from the stale record
	row := newRowFields()
	for k, v := range own {
		row[k] = v
	}
	if r.carry != nil {
		for k, v := range kindFields(r.kind.Other(), r.carry) {
			row[k] = v
		}
	}

	dbc := dbctx.From(ctx)
	if r.staleID != uuid.Nil {
		row["video_url"] = r.videoURL
		err := o.records.UpdateFields(dbc, r.staleID, row)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			return nil, &StageError{Stage: StagePersist, Kind: ErrPersistence, Err: err}
		}
		log.Debug("Stale record vanished before overwrite; creating", "record_id", r.staleID)
	}

	rec := &types.Record{VideoKey: r.videoKey, VideoURL: r.videoURL}
	applyRow(rec, row)
	_, err = o.records.Create(dbc, rec)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, ErrDuplicateKey) {
		span.RecordError(err)
		return nil, &StageError{Stage: StagePersist, Kind: ErrPersistence, Err: err}
	}

	// another writer created the row; overwrite this kind's fields on it
	existing, getErr := o.records.GetByVideoKey(dbc, r.videoKey)
	if getErr != nil || existing == nil {
		return nil, &StageError{Stage: StagePersist, Kind: ErrPersistence, Err: errors.Join(err, getErr)}
	}
	log.Warn("Record created concurrently; overwriting", "record_id", existing.ID)
	if err := o.records.UpdateFields(dbc, existing.ID, own); err != nil {
		span.RecordError(err)
		return nil, &StageError{Stage: StagePersist, Kind: ErrPersistence, Err: err}
	}
	return res, nil
}

// ownFields encodes the columns owned by kind and fills res with the
// values returned to the caller.
func ownFields(kind types.Kind, captions []types.Caption, parsed *Parsed, res *Result) (map[string]interface{}, error) {
	switch kind {
	case types.KindSummary:
		points, err := types.EncodeJSON(parsed.Summary.MainPoints)
		if err != nil {
			return nil, err
		}
		res.Summary = parsed.Summary
		return map[string]interface{}{
			"summary":     parsed.Summary.Summary,
			"main_points": points,
		}, nil
	case types.KindTopics:
		lines := transcriptLines(captions)
		transcript, err := types.EncodeJSON(lines)
		if err != nil {
			return nil, err
		}
		topics, err := types.EncodeJSON(parsed.Topics)
		if err != nil {
			return nil, err
		}
		res.Topics = &types.TopicResult{Transcript: lines, Topics: parsed.Topics}
		return map[string]interface{}{
			"transcript": transcript,
			"topics":     topics,
		}, nil
	}
	return nil, fmt.Errorf("unknown insight kind %q", kind)
}

func kindFields(kind types.Kind, rec *types.Record) map[string]interface{} {
	if kind == types.KindSummary {
		return map[string]interface{}{"summary": rec.Summary, "main_points": rec.MainPoints}
	}
	return map[string]interface{}{"transcript": rec.Transcript, "topics": rec.Topics}
}

func newRowFields() map[string]interface{} {
	return map[string]interface{}{
		"summary":     "",
		"main_points": datatypes.JSON(nil),
		"transcript":  datatypes.JSON(nil),
		"topics":      datatypes.JSON(nil),
	}
}

func applyRow(rec *types.Record, row map[string]interface{}) {
	rec.Summary, _ = row["summary"].(string)
	rec.MainPoints, _ = row["main_points"].(datatypes.JSON)
	rec.Transcript, _ = row["transcript"].(datatypes.JSON)
	rec.Topics, _ = row["topics"].(datatypes.JSON)
}

func transcriptLines(captions []types.Caption) []types.TranscriptLine {
	out := make([]types.TranscriptLine, 0, len(captions))
	for _, c := range captions {
		out = append(out, types.TranscriptLine{
			Timestamp: types.FormatTimestamp(c.OffsetMs),
			Text:      c.Text,
		})
	}
	return out
}

func resultFromRecord(kind types.Kind, rec *types.Record) (*Result, error) {
	res := &Result{Kind: kind, VideoKey: rec.VideoKey, Cached: true}
	switch kind {
	case types.KindSummary:
		points, err := rec.DecodeMainPoints()
		if err != nil {
			return nil, err
		}
		res.Summary = &types.SummaryResult{Summary: rec.Summary, MainPoints: points}
	case types.KindTopics:
		lines, err := rec.DecodeTranscript()
		if err != nil {
			return nil, err
		}
		topics, err := rec.DecodeTopics()
		if err != nil {
			return nil, err
		}
		res.Topics = &types.TopicResult{Transcript: lines, Topics: topics}
	}
	return res, nil
}

func timedOut(callCtx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)
}
