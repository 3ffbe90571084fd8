package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"works-matching-backend/internal/logger"
)

// Stage is the discriminant of a progress frame. The set is open: servers
// may emit stages this client does not know, which display at the current
// high-water mark rather than regressing it.
type Stage string

const (
	StageParsing            Stage = "parsing"
	StageParsed             Stage = "parsed"
	StageCreatingRecords    Stage = "creating_records"
	StageGeneratingProfiles Stage = "generating_embeddings"
	StageProfilesComplete   Stage = "embeddings_complete"
	StageMatching           Stage = "matching"
	StageMatchingProgress   Stage = "matching_progress"
	StageComplete           Stage = "complete"
	StageError              Stage = "error"
)

// stagePercent maps known stages to display percentages. Values are
// monotonic in pipeline order; unknown stages map to 0 and are absorbed by
// the high-water mark.
var stagePercent = map[Stage]float64{
	StageParsing:            5,
	StageParsed:             10,
	StageCreatingRecords:    15,
	StageGeneratingProfiles: 25,
	StageProfilesComplete:   40,
	StageMatching:           45,
	StageComplete:           100,
}

// ProgressEvent is one decoded frame of the upload stream. Percentage is a
// pointer so an explicit 0 from the server is distinguishable from absent.
type ProgressEvent struct {
	Stage        Stage    `json:"stage"`
	Message      string   `json:"message,omitempty"`
	BatchID      string   `json:"batch_id,omitempty"`
	TotalRecords int      `json:"total_records,omitempty"`
	Processed    int      `json:"processed,omitempty"`
	Total        int      `json:"total,omitempty"`
	Matched      int      `json:"matched,omitempty"`
	Flagged      int      `json:"flagged,omitempty"`
	Unmatched    int      `json:"unmatched,omitempty"`
	Percentage   *float64 `json:"percentage,omitempty"`

	// DisplayPercent is the high-water-mark percentage after applying this
	// event. Filled in by the consumer, never sent on the wire.
	DisplayPercent float64 `json:"-"`
}

// Terminal reports whether this frame ends the stream.
func (e *ProgressEvent) Terminal() bool {
	return e.Stage == StageComplete || e.Stage == StageError
}

// UploadResult is the outcome of a completed upload stream.
type UploadResult struct {
	BatchID      string
	TotalRecords int
	Matched      int
	Flagged      int
	Unmatched    int
}

// ErrProcessingFailed wraps the message of a terminal error frame.
var ErrProcessingFailed = errors.New("processing failed")

// ErrStreamTruncated is returned when the connection closes before a
// terminal frame arrives. The upload is not resumable; re-upload to retry.
var ErrStreamTruncated = errors.New("progress stream ended without a terminal event")

const framePrefix = "data: "

// ProgressConsumer decodes a stream of "data: {json}" frames into progress
// events. Its only state is the high-water-mark percentage; malformed frames
// are logged and dropped.
type ProgressConsumer struct {
	highWater float64
	log       *logger.Logger
}

func NewProgressConsumer(log *logger.Logger) *ProgressConsumer {
	return &ProgressConsumer{log: log.With("component", "progress")}
}

// Percent returns the current high-water-mark percentage.
func (c *ProgressConsumer) Percent() float64 {
	return c.highWater
}

// apply folds one event into the high-water mark. An explicit percentage
// field overrides the stage table but still only moves the mark upward.
func (c *ProgressConsumer) apply(ev *ProgressEvent) {
	if ev.Percentage != nil {
		if *ev.Percentage > c.highWater {
			c.highWater = *ev.Percentage
		}
	} else if p, ok := stagePercent[ev.Stage]; ok && p > c.highWater {
		c.highWater = p
	}
	ev.DisplayPercent = c.highWater
}

// Consume reads frames until a terminal event or the stream ends. onEvent
// is invoked for every decoded frame, terminal ones included; it may be nil.
func (c *ProgressConsumer) Consume(body io.Reader, onEvent func(ProgressEvent)) (*UploadResult, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, framePrefix) {
			continue
		}

		var ev ProgressEvent
		if err := json.Unmarshal([]byte(line[len(framePrefix):]), &ev); err != nil {
			c.log.Warn("dropping malformed progress frame", "error", err)
			continue
		}

		c.apply(&ev)
		if onEvent != nil {
			onEvent(ev)
		}

		switch ev.Stage {
		case StageComplete:
			return &UploadResult{
				BatchID:      ev.BatchID,
				TotalRecords: ev.TotalRecords,
				Matched:      ev.Matched,
				Flagged:      ev.Flagged,
				Unmatched:    ev.Unmatched,
			}, nil
		case StageError:
			return nil, fmt.Errorf("%w: %s", ErrProcessingFailed, ev.Message)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, ErrStreamTruncated
}
