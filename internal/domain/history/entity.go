package history

import "time"

// Action names used in failure records
const (
	ActionAnalyze = "analyze"
	ActionAnswer  = "answer"
)

// Analysis is an audit record of one successful analysis run
type Analysis struct {
	ID              string    `json:"id"`
	VideoID         string    `json:"video_id"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	TotalComments   int       `json:"total_comments"`
	IndexedComments int       `json:"indexed_comments"`
	Result          string    `json:"result"` // full AnalysisResult as JSON
	DurationMS      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// Question is an audit record of one answered question
type Question struct {
	ID         string    `json:"id"`
	VideoID    string    `json:"video_id"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	KUsed      int       `json:"k_used"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Failure represents a persisted failed action
type Failure struct {
	ID        int64     `json:"id"`
	VideoID   string    `json:"video_id,omitempty"`
	Action    string    `json:"action"` // analyze | answer
	Input     string    `json:"input,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
