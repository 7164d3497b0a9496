package engine

// JobState is the lifecycle state of a whole-document translation job.
type JobState string

const (
	JobNotStarted JobState = "not_started"
	JobInProgress JobState = "in_progress"
	JobCompleted  JobState = "completed"
	JobFailed     JobState = "failed"
)

// Terminal reports whether no further progress updates are expected.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobStatus is one snapshot of translation-job progress. Snapshots are
// not cumulative; each one replaces the previous.
type JobStatus struct {
	DocumentID        string   `json:"id"`
	State             JobState `json:"status"`
	SourceLanguage    string   `json:"source_language,omitempty"`
	TargetLanguage    string   `json:"target_language,omitempty"`
	TotalSections     int      `json:"total_chapters"`
	CompletedSections int      `json:"completed_chapters"`
	CurrentSection    string   `json:"current_chapter,omitempty"`
	ProgressPercent   float64  `json:"progress_percentage"`
	ErrorMessage      string   `json:"error_message,omitempty"`
}
