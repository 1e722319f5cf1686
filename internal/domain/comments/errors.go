package comments

import "errors"

var (
	ErrEmptyURL        = errors.New("youtube url is required")
	ErrInvalidVideoURL = errors.New("could not extract a video id from url")
	ErrVideoNotFound   = errors.New("video not found")
	ErrNoComments      = errors.New("no comments available for this video")
	ErrYouTubeQuota    = errors.New("youtube api quota exceeded")
	ErrEmptyQuestion   = errors.New("question is required")
	ErrInvalidK        = errors.New("k must be at least 1")
	// ErrNoDatabase means nothing has been analyzed yet (or the index was removed).
	ErrNoDatabase = errors.New("no comment database found, analyze a video first")
)
