// Package analyses runs uploaded PDFs through extraction, completion and parsing, and keeps
// each caller's history of results.
package analyses

import (
	"time"

	"summarize-backend/internal/parse"
)

// Upload is one document received for analysis. It lives only for the duration of a request.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Data        []byte
}

// Record is a persisted analysis. Records are immutable once inserted.
type Record struct {
	ID         string
	OwnerID    string
	FileName   string
	CreatedAt  time.Time
	Result     parse.Result
	ArchiveKey string
}

// Input is one pipeline run. An empty OwnerID runs the analysis without persisting it.
type Input struct {
	Upload    Upload
	OwnerID   string
	RequestID string
}

// Outcome is the result of a successful pipeline run.
type Outcome struct {
	Result parse.Result
	// RecordID is set when the result was saved to history.
	RecordID string
	// Warning is set when the result is valid but could not be saved.
	Warning string
	Cached  bool
}

// Stage names a pipeline state.
type Stage string

const (
	StageReceived   Stage = "received"
	StageExtracted  Stage = "extracted"
	StageSummarized Stage = "summarized"
	StageParsed     Stage = "parsed"
	StagePersisted  Stage = "persisted"
	StageReturned   Stage = "returned"
	StageFailed     Stage = "failed"
)

// WarningHistoryNotSaved marks a result that was computed but not written to history.
const WarningHistoryNotSaved = "history_not_saved"

func cloneResult(r parse.Result) parse.Result {
	return parse.Result{
		Summary:   r.Summary,
		KeyPoints: append([]string(nil), r.KeyPoints...),
		Actions:   append([]string(nil), r.Actions...),
	}
}

func cloneRecord(r Record) Record {
	r.Result = cloneResult(r.Result)
	return r
}
