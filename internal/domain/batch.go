package domain

// URLStatus is the terminal status of one URL within a batch run.
type URLStatus string

const (
	// URLStatusCompleted means the article was fetched and stored.
	URLStatusCompleted URLStatus = "completed"

	// URLStatusFailed means the fetch failed; Error carries the reason.
	URLStatusFailed URLStatus = "failed"

	// URLStatusSkipped means the article was already cached.
	URLStatusSkipped URLStatus = "skipped"
)

// URLResult is the per-URL entry of a batch outcome.
type URLResult struct {
	URL    string    `json:"url"`
	Status URLStatus `json:"status"`
	// Extracted title, set on completion
	Title string `json:"title,omitempty"`
	// Failure reason, set when Status is failed
	Error string `json:"error,omitempty"`
}

// BatchOutcome is the aggregate result of one batch run. Every input URL
// appears exactly once in Results; Total always equals
// Completed + Failed + Skipped.
type BatchOutcome struct {
	// Unique identifier of the batch run
	BatchID string `json:"batch_id"`
	Total   int    `json:"total"`

	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`

	// SessionExpired reports whether the upstream session died mid-run
	SessionExpired bool `json:"session_expired"`

	Results []URLResult `json:"results"`
}

// Record appends a per-URL result and updates the aggregate counters.
func (o *BatchOutcome) Record(res URLResult) {
	o.Results = append(o.Results, res)

	switch res.Status {
	case URLStatusCompleted:
		o.Completed++
	case URLStatusFailed:
		o.Failed++
	case URLStatusSkipped:
		o.Skipped++
	}
}
