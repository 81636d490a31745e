package analyses

import (
	"bytes"
	"context"
	"time"

	"summarize-backend/internal/contract"
	"summarize-backend/internal/extract"
	"summarize-backend/internal/llm"
	"summarize-backend/internal/parse"
	"summarize-backend/internal/redact"
	"summarize-backend/internal/shared/apperr"
	"summarize-backend/internal/shared/metrics"
	"summarize-backend/internal/shared/storage/object"
	"summarize-backend/internal/shared/telemetry"
)

// Pipeline runs one upload through extraction, summarization, parsing and, for identified
// callers, persistence. Stages run strictly in order and the first failure ends the run.
type Pipeline struct {
	Gateway    Gateway
	Extractor  extract.Extractor
	Summarizer *llm.Summarizer
	Repo       Repo
	// Archive keeps a copy of persisted uploads. Nil disables archiving.
	Archive object.ObjectStore
	// Cache skips the upstream call for prompts already answered. Nil disables caching.
	Cache     *ResultCache
	RedactPII bool
}

type run struct {
	in    Input
	start time.Time
}

func (r run) log(stage Stage, extra map[string]any) {
	fields := map[string]any{
		"stage":      string(stage),
		"request_id": r.in.RequestID,
		"file_name":  r.in.Upload.FileName,
	}
	if r.in.OwnerID != "" {
		fields["owner_id"] = r.in.OwnerID
	}
	for k, v := range extra {
		fields[k] = v
	}
	telemetry.Info("analysis.stage", fields)
}

func (r run) fail(stage Stage, err error) error {
	kind := apperr.KindOf(err)
	fields := map[string]any{
		"stage":       string(StageFailed),
		"last_stage":  string(stage),
		"kind":        string(kind),
		"request_id":  r.in.RequestID,
		"error":       err,
		"duration_ms": time.Since(r.start).Milliseconds(),
	}
	if r.in.OwnerID != "" {
		fields["owner_id"] = r.in.OwnerID
	}
	telemetry.Error("analysis.failed", fields)
	metrics.IncAnalysisFailed(string(kind))
	metrics.ObserveAnalysisDurationMs(metrics.SinceMillis(r.start))
	return err
}

// checkpoint reports a canceled caller before the next stage starts.
func checkpoint(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return apperr.New(apperr.KindCanceled, "request canceled", err)
	}
	return nil
}

// Analyze validates and analyzes in.Upload.
func (p *Pipeline) Analyze(ctx context.Context, in Input) (Outcome, error) {
	r := run{in: in, start: time.Now()}
	metrics.IncAnalysisStarted()
	r.log(StageReceived, map[string]any{"size_bytes": in.Upload.Size})

	if err := p.Gateway.Validate(in.Upload); err != nil {
		return Outcome{}, r.fail(StageReceived, err)
	}
	if err := checkpoint(ctx); err != nil {
		return Outcome{}, r.fail(StageReceived, err)
	}

	text, err := p.Extractor.Extract(ctx, in.Upload.Data)
	if err != nil {
		if cerr := checkpoint(ctx); cerr != nil {
			err = cerr
		}
		return Outcome{}, r.fail(StageReceived, err)
	}
	extracted := map[string]any{"text_chars": len(text)}
	if p.RedactPII {
		var report redact.Report
		text, report = redact.Text(text)
		for k, v := range report.Fields() {
			extracted[k] = v
		}
	}
	r.log(StageExtracted, extracted)
	if err := checkpoint(ctx); err != nil {
		return Outcome{}, r.fail(StageExtracted, err)
	}

	req := p.Summarizer.BuildRequest(text)
	cacheKey := p.Summarizer.CacheKey(req)
	result, cached := p.Cache.Get(cacheKey)
	if cached {
		metrics.IncCacheHit()
		r.log(StageSummarized, map[string]any{"cached": true})
	} else {
		raw, err := p.Summarizer.Summarize(ctx, req)
		if err != nil {
			return Outcome{}, r.fail(StageExtracted, err)
		}
		r.log(StageSummarized, map[string]any{"completion_chars": len(raw), "model": req.Model})

		result, err = parse.Parse(raw, p.headings())
		if err != nil {
			return Outcome{}, r.fail(StageSummarized, err)
		}
		p.Cache.Add(cacheKey, result)
	}
	r.log(StageParsed, map[string]any{
		"key_points": len(result.KeyPoints),
		"actions":    len(result.Actions),
	})

	// An aborted request never leaves a record behind.
	if err := checkpoint(ctx); err != nil {
		return Outcome{}, r.fail(StageParsed, err)
	}

	out := Outcome{Result: result, Cached: cached}
	if in.OwnerID == "" || p.Repo == nil {
		r.log(StageReturned, nil)
		p.complete(r)
		return out, nil
	}

	rec, err := p.persist(ctx, in, result)
	if err != nil {
		out.Warning = WarningHistoryNotSaved
		metrics.IncHistorySaveFailed()
		telemetry.Warn("analysis.persist_failed", map[string]any{
			"request_id": in.RequestID,
			"owner_id":   in.OwnerID,
			"error":      err,
		})
		r.log(StageReturned, map[string]any{"warning": out.Warning})
		p.complete(r)
		return out, nil
	}
	out.RecordID = rec.ID
	metrics.IncAnalysisPersisted()
	r.log(StagePersisted, map[string]any{"record_id": rec.ID})
	p.complete(r)
	return out, nil
}

func (p *Pipeline) complete(r run) {
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(metrics.SinceMillis(r.start))
}

func (p *Pipeline) headings() contract.Headings {
	return p.Summarizer.Contract.Headings
}

// persist archives the upload when configured and inserts the record. An archived copy is
// removed again when the insert fails.
func (p *Pipeline) persist(ctx context.Context, in Input, result parse.Result) (Record, error) {
	key, err := p.archive(ctx, in)
	if err != nil {
		telemetry.Warn("analysis.archive_failed", map[string]any{
			"request_id": in.RequestID,
			"owner_id":   in.OwnerID,
			"error":      err,
		})
	}
	rec, err := p.Repo.Insert(ctx, Record{
		OwnerID:    in.OwnerID,
		FileName:   in.Upload.FileName,
		Result:     result,
		ArchiveKey: key,
	})
	if err != nil {
		if key != "" {
			if derr := p.Archive.Delete(context.WithoutCancel(ctx), key); derr != nil {
				telemetry.Warn("analysis.archive_cleanup_failed", map[string]any{
					"request_id":  in.RequestID,
					"archive_key": key,
					"error":       derr,
				})
			}
		}
		return Record{}, err
	}
	return rec, nil
}

func (p *Pipeline) archive(ctx context.Context, in Input) (string, error) {
	if p.Archive == nil {
		return "", nil
	}
	if in.Upload.FileName == "" {
		return "", nil
	}
	info, err := p.Archive.Save(ctx, in.OwnerID, in.Upload.FileName, bytes.NewReader(in.Upload.Data))
	if err != nil {
		return "", err
	}
	return info.Key, nil
}
