package domain

// ImportAction is the terminal outcome of one record in a batch run.
type ImportAction string

const (
	ActionAdded   ImportAction = "added"
	ActionSkipped ImportAction = "skipped"
	ActionWarning ImportAction = "warning"
	ActionFailed  ImportAction = "failed"
)

// ImportOutcome ties one source record to its terminal action. Created once
// per record during batch processing and never mutated afterwards.
type ImportOutcome struct {
	Title  string       `json:"title"`
	PMID   string       `json:"pmid,omitempty"`
	DOI    string       `json:"doi,omitempty"`
	Action ImportAction `json:"action"`
	Reason string       `json:"reason,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// ResolvedDestination identifies the validated target collection of a batch.
type ResolvedDestination struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// CollectionOption is a collection offered to the caller after a failed
// destination resolution.
type CollectionOption struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// DestinationNotFound is the structured failure returned when a requested
// collection name or key does not exist. The batch aborts before any write.
type DestinationNotFound struct {
	Attempted   string             `json:"attempted"`
	Suggestions []string           `json:"suggestions,omitempty"`
	Available   []CollectionOption `json:"available_collections"`
}

// BatchReport is the sole return value of a batch run. It is built up in
// memory and returned atomically; callers never observe a partial report.
// The invariant Total == Added+Skipped+Warnings+Failed holds by construction:
// counts are only changed through Record.
type BatchReport struct {
	BatchID string `json:"batch_id"`
	Success bool   `json:"success"`

	Total    int `json:"total"`
	Added    int `json:"added"`
	Skipped  int `json:"skipped"`
	Warnings int `json:"warnings"`
	Failed   int `json:"failed"`

	AddedItems   []ImportOutcome `json:"added_items"`
	SkippedItems []ImportOutcome `json:"skipped_items"`
	WarningItems []ImportOutcome `json:"warning_items"`
	FailedItems  []ImportOutcome `json:"failed_items"`

	// ElapsedTime is the end-to-end wall-clock duration of the run in seconds.
	ElapsedTime float64 `json:"elapsed_time"`

	Destination        *ResolvedDestination `json:"resolved_destination,omitempty"`
	DestinationFailure *DestinationNotFound `json:"destination_failure,omitempty"`

	// Warning carries batch-level caveats, e.g. that no destination was
	// specified and items went to the library root.
	Warning string `json:"warning,omitempty"`

	// Error carries a batch-level error when the run aborted before the
	// per-record loop (empty input, unresolved destination).
	Error string `json:"error,omitempty"`

	HumanSummary string `json:"human_summary"`
}

// Record appends an outcome to the matching bucket and updates the counters.
func (r *BatchReport) Record(o ImportOutcome) {
	r.Total++
	switch o.Action {
	case ActionAdded:
		r.Added++
		r.AddedItems = append(r.AddedItems, o)
	case ActionSkipped:
		r.Skipped++
		r.SkippedItems = append(r.SkippedItems, o)
	case ActionWarning:
		r.Warnings++
		r.WarningItems = append(r.WarningItems, o)
	case ActionFailed:
		r.Failed++
		r.FailedItems = append(r.FailedItems, o)
	}
}
