package comments

import "context"

// Fetcher port (interface untuk ambil data dari YouTube)
type Fetcher interface {
	Video(ctx context.Context, videoID string) (*Video, error)
	Comments(ctx context.Context, videoID string, limit int) ([]Comment, error)
}

// Index port for the vector store holding one collection per video.
type Index interface {
	// Replace drops whatever is stored for videoID and stores docs instead.
	Replace(ctx context.Context, videoID string, docs []Document) error
	Search(ctx context.Context, videoID string, query []float32, k int) ([]Match, error)
	Count(ctx context.Context, videoID string) (int, error)
	// Release drops open handles and cached collections. The index stays usable.
	Release()
	Close() error
}

// Workspace is the local directory that namespaces metadata per video.
type Workspace interface {
	Exists() bool
	WriteMetadata(videoID string, m *Metadata) error
	// ReadMetadata returns the metadata file decoded as generic JSON.
	ReadMetadata(videoID string) (any, bool, error)
	LoadMetadata(videoID string) (*Metadata, error)
	SetCurrent(videoID string) error
	Current() (string, error)
}

// SnapshotStore port (interface untuk simpan snapshot hasil analisa)
type SnapshotStore interface {
	PutJSON(ctx context.Context, key string, v any) (string, error)
}
