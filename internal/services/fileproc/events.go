package fileproc

// Processing stages emitted over the upload progress stream, in pipeline
// order. matching_progress repeats once per sub-batch.
const (
	StageParsing            = "parsing"
	StageParsed             = "parsed"
	StageCreatingRecords    = "creating_records"
	StageGeneratingProfiles = "generating_embeddings"
	StageProfilesComplete   = "embeddings_complete"
	StageMatching           = "matching"
	StageMatchingProgress   = "matching_progress"
	StageComplete           = "complete"
	StageError              = "error"
)

// ProgressEvent is one frame of the upload progress stream. Fields are
// populated per stage; zero-valued fields are omitted on the wire.
type ProgressEvent struct {
	Stage        string  `json:"stage"`
	Message      string  `json:"message,omitempty"`
	BatchID      string  `json:"batch_id,omitempty"`
	TotalRecords int     `json:"total_records,omitempty"`
	Processed    int     `json:"processed,omitempty"`
	Total        int     `json:"total,omitempty"`
	Matched      int     `json:"matched,omitempty"`
	Flagged      int     `json:"flagged,omitempty"`
	Unmatched    int     `json:"unmatched,omitempty"`
	Percentage   float64 `json:"percentage,omitempty"`
}
