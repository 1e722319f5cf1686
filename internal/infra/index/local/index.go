package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	domain "github.com/bryanwahyu/comment-analyzer/internal/domain/comments"
)

const collectionFile = "comments.json"

type collection struct {
	VideoID   string            `json:"video_id"`
	Documents []domain.Document `json:"documents"`
}

// Index is a brute force cosine-similarity index persisted as one JSON
// file per video inside the workspace. Collections are cached after the
// first load until Release.
type Index struct {
	ws *Workspace

	mu    sync.RWMutex
	cache map[string]*collection
}

func NewIndex(ws *Workspace) *Index {
	return &Index{ws: ws, cache: make(map[string]*collection)}
}

func (x *Index) path(videoID string) string {
	return filepath.Join(x.ws.VideoDir(videoID), collectionFile)
}

func (x *Index) Replace(ctx context.Context, videoID string, docs []domain.Document) error {
	c := &collection{VideoID: videoID, Documents: docs}
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if err := writeFileAtomic(x.path(videoID), b); err != nil {
		return fmt.Errorf("writing collection: %w", err)
	}
	x.cache[videoID] = c
	return nil
}

func (x *Index) Search(ctx context.Context, videoID string, query []float32, k int) ([]domain.Match, error) {
	c, err := x.load(videoID)
	if err != nil {
		return nil, err
	}
	if k <= 0 || len(c.Documents) == 0 {
		return nil, nil
	}

	qn := norm(query)
	matches := make([]domain.Match, 0, len(c.Documents))
	for _, d := range c.Documents {
		if len(d.Embedding) != len(query) {
			return nil, fmt.Errorf("embedding dimension mismatch: index has %d, query has %d", len(d.Embedding), len(query))
		}
		matches = append(matches, domain.Match{Comment: d.Comment, Score: cosine(query, qn, d.Embedding)})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Comment.Likes > matches[j].Comment.Likes
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns 0 for a video that was never indexed.
func (x *Index) Count(ctx context.Context, videoID string) (int, error) {
	c, err := x.load(videoID)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(c.Documents), nil
}

// Release drops every cached collection; they are reloaded on demand.
func (x *Index) Release() {
	x.mu.Lock()
	x.cache = make(map[string]*collection)
	x.mu.Unlock()
}

func (x *Index) Close() error {
	x.Release()
	return nil
}

func (x *Index) load(videoID string) (*collection, error) {
	x.mu.RLock()
	c, ok := x.cache[videoID]
	x.mu.RUnlock()
	if ok {
		return c, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if c, ok := x.cache[videoID]; ok {
		return c, nil
	}
	b, err := os.ReadFile(x.path(videoID))
	if err != nil {
		return nil, err
	}
	c = &collection{}
	if err := json.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("decoding collection %s: %w", videoID, err)
	}
	x.cache[videoID] = c
	return c, nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func cosine(q []float32, qn float64, d []float32) float64 {
	dn := norm(d)
	if qn == 0 || dn == 0 {
		return 0
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(d[i])
	}
	return dot / (qn * dn)
}
