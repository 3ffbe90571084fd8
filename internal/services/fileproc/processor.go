package fileproc

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"works-matching-backend/internal/logger"
	"works-matching-backend/internal/models"
	"works-matching-backend/internal/repository"
	"works-matching-backend/internal/services/matching"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Matching runs in sub-batches of this size so progress frames land at a
// useful cadence.
const matchBatchSize = 10

// EmitFunc receives each progress frame. Emission order is the display
// order; the processor never emits after a terminal frame.
type EmitFunc func(ProgressEvent)

// Processor drives an uploaded file through parse, record creation, and
// matching, emitting progress frames along the way.
type Processor struct {
	batches *repository.BatchRepository
	records *repository.UsageRecordRepository
	matches *repository.MatchRepository
	engine  *matching.Engine
	log     *logger.Logger
}

func NewProcessor(
	batches *repository.BatchRepository,
	records *repository.UsageRecordRepository,
	matches *repository.MatchRepository,
	engine *matching.Engine,
	log *logger.Logger,
) *Processor {
	return &Processor{
		batches: batches,
		records: records,
		matches: matches,
		engine:  engine,
		log:     log.With("component", "fileproc"),
	}
}

// Process runs the full pipeline for one uploaded file. Every exit path
// emits a terminal frame (complete or error); the returned error mirrors the
// error frame for callers that do not watch the stream.
func (p *Processor) Process(ctx context.Context, raw []byte, filename string, emit EmitFunc) error {
	emit(ProgressEvent{Stage: StageParsing, Message: "Parsing file..."})

	parsed, err := ParseContent(DecodeContent(raw))
	if err != nil {
		emit(ProgressEvent{Stage: StageError, Message: err.Error()})
		return err
	}

	batch := &models.Batch{
		ID:           uuid.New(),
		Filename:     filename,
		TotalRecords: len(parsed),
		Status:       models.BatchPending,
	}
	if err := p.batches.Create(batch); err != nil {
		emit(ProgressEvent{Stage: StageError, Message: "failed to create batch"})
		return err
	}
	if err := p.batches.MarkProcessing(batch.ID); err != nil {
		return p.fail(batch.ID, emit, err)
	}

	emit(ProgressEvent{
		Stage:        StageParsed,
		BatchID:      batch.ID.String(),
		TotalRecords: len(parsed),
		Message:      fmt.Sprintf("Found %d records", len(parsed)),
	})

	emit(ProgressEvent{Stage: StageCreatingRecords, Message: "Creating usage records..."})
	usageRecords, err := p.createUsageRecords(batch.ID, parsed)
	if err != nil {
		return p.fail(batch.ID, emit, err)
	}

	// The engine indexes lazily per record; this stage exists so the stream
	// reports catalog preparation distinctly from matching.
	emit(ProgressEvent{Stage: StageGeneratingProfiles, Message: "Preparing match profiles..."})
	if err := p.engine.LoadCatalog(); err != nil {
		return p.fail(batch.ID, emit, err)
	}
	emit(ProgressEvent{Stage: StageProfilesComplete, Message: "Match profiles ready"})

	emit(ProgressEvent{Stage: StageMatching, Message: "Running matching algorithm..."})

	var matched, flagged, unmatched int
	total := len(usageRecords)
	for start := 0; start < total; start += matchBatchSize {
		if err := ctx.Err(); err != nil {
			return p.fail(batch.ID, emit, err)
		}

		end := start + matchBatchSize
		if end > total {
			end = total
		}

		for i := start; i < end; i++ {
			rec := usageRecords[i]
			results := p.engine.MatchRecord(&rec)
			if err := p.matches.CreateBatch(results); err != nil {
				return p.fail(batch.ID, emit, err)
			}
			switch matching.Outcome(results) {
			case matching.OutcomeMatched:
				matched++
			case matching.OutcomeFlagged:
				flagged++
			default:
				unmatched++
			}
		}

		if err := p.batches.UpdateProgress(batch.ID, end, matched, flagged, unmatched); err != nil {
			return p.fail(batch.ID, emit, err)
		}

		emit(ProgressEvent{
			Stage:      StageMatchingProgress,
			Processed:  end,
			Total:      total,
			Matched:    matched,
			Flagged:    flagged,
			Unmatched:  unmatched,
			Percentage: math.Round(float64(end)/float64(total)*1000) / 10,
		})
	}

	if err := p.batches.MarkCompleted(batch.ID); err != nil {
		return p.fail(batch.ID, emit, err)
	}

	emit(ProgressEvent{
		Stage:        StageComplete,
		BatchID:      batch.ID.String(),
		TotalRecords: total,
		Matched:      matched,
		Flagged:      flagged,
		Unmatched:    unmatched,
		Message:      "Processing complete",
	})
	return nil
}

func (p *Processor) createUsageRecords(batchID uuid.UUID, parsed []ParsedRecord) ([]models.UsageRecord, error) {
	records := make([]models.UsageRecord, 0, len(parsed))
	for _, rec := range parsed {
		original, _ := json.Marshal(rec.Original)
		records = append(records, models.UsageRecord{
			BatchID:         batchID,
			RowNumber:       rec.RowNumber,
			WorkTitle:       rec.WorkTitle,
			Songwriter:      rec.Songwriter,
			RecordingTitle:  rec.RecordingTitle,
			RecordingArtist: rec.RecordingArtist,
			OriginalRow:     datatypes.JSON(original),
		})
	}
	return p.records.CreateBatch(records)
}

func (p *Processor) fail(batchID uuid.UUID, emit EmitFunc, err error) error {
	p.log.Error("batch processing failed", "batchID", batchID, "error", err)
	if dbErr := p.batches.MarkFailed(batchID, err.Error()); dbErr != nil {
		p.log.Error("failed to mark batch failed", "batchID", batchID, "error", dbErr)
	}
	emit(ProgressEvent{
		Stage:   StageError,
		BatchID: batchID.String(),
		Message: fmt.Sprintf("Processing failed: %v", err),
	})
	return err
}
