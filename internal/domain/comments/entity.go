package comments

import "time"

// MetadataFile nama file metadata per video di dalam index dir
const MetadataFile = "video_metadata.json"

// Comment single YouTube comment (top level or reply)
type Comment struct {
	ID          string    `json:"id"`
	Author      string    `json:"author"`
	Text        string    `json:"text"`
	Likes       int64     `json:"likes"`
	PublishedAt time.Time `json:"published_at"`
	ParentID    string    `json:"parent_id,omitempty"`
}

// Video holds the bits of video metadata we keep around
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Channel      string    `json:"channel"`
	Description  string    `json:"description,omitempty"`
	PublishedAt  time.Time `json:"published_at"`
	Views        uint64    `json:"views"`
	Likes        uint64    `json:"likes"`
	CommentCount uint64    `json:"comment_count"`
}

// Document is a comment together with its embedding, the unit stored in an Index.
type Document struct {
	Comment
	Embedding []float32 `json:"embedding"`
}

// Match search hit
type Match struct {
	Comment Comment `json:"comment"`
	Score   float64 `json:"score"`
}

// Metadata is written next to the index of every analyzed video.
type Metadata struct {
	VideoID         string    `json:"video_id"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Channel         string    `json:"channel"`
	PublishedAt     time.Time `json:"published_at"`
	Views           uint64    `json:"views"`
	TotalComments   int       `json:"total_comments"`
	IndexedComments int       `json:"indexed_comments"`
	EmbeddingModel  string    `json:"embedding_model"`
	Summary         string    `json:"summary,omitempty"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
}

// TopComment is the short form used in analysis results.
type TopComment struct {
	Author string `json:"author"`
	Text   string `json:"text"`
	Likes  int64  `json:"likes"`
}

// AnalysisResult returned by AnalyzeYouTubeComments
type AnalysisResult struct {
	VideoID         string       `json:"video_id"`
	URL             string       `json:"url"`
	Title           string       `json:"title"`
	Channel         string       `json:"channel"`
	TotalComments   int          `json:"total_comments"`
	IndexedComments int          `json:"indexed_comments"`
	Summary         string       `json:"summary,omitempty"`
	TopComments     []TopComment `json:"top_comments"`
	SnapshotURL     string       `json:"snapshot_url,omitempty"`
	ProcessingTime  string       `json:"processing_time"`
	AnalyzedAt      time.Time    `json:"analyzed_at"`
}

// Source is a comment that was handed to the model while answering.
type Source struct {
	Author string  `json:"author"`
	Text   string  `json:"text"`
	Likes  int64   `json:"likes"`
	Score  float64 `json:"score"`
}

// Answer returned by AnswerQuestion
type Answer struct {
	Answer         string   `json:"answer"`
	KUsed          int      `json:"k_used"`
	ProcessingTime string   `json:"processing_time"`
	VideoID        string   `json:"video_id"`
	Sources        []Source `json:"sources,omitempty"`
}

// Status is what the sidebar shows: whether the index dir exists, which
// video is current and, when readable, that video's metadata file.
type Status struct {
	DatabaseExists bool   `json:"database_exists"`
	CurrentVideoID string `json:"current_video_id"`
	Metadata       any    `json:"metadata,omitempty"`
	MetadataError  string `json:"metadata_error,omitempty"`
}
