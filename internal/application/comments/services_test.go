package comments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/comment-analyzer/internal/domain/comments"
	"github.com/bryanwahyu/comment-analyzer/internal/domain/history"
)

const testURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

type fakeFetcher struct {
	video    *domain.Video
	comments []domain.Comment
	err      error
	limit    int
}

func (f *fakeFetcher) Video(ctx context.Context, id string) (*domain.Video, error) {
	if f.err != nil {
		return nil, f.err
	}
	v := *f.video
	v.ID = id
	return &v, nil
}

func (f *fakeFetcher) Comments(ctx context.Context, id string, limit int) ([]domain.Comment, error) {
	f.limit = limit
	return f.comments, f.err
}

type fakeAssistant struct {
	embedCalls   int
	answerCalls  int
	summaryErr   error
	answerErr    error
	lastQuestion string
	lastMatches  []domain.Match
}

func (a *fakeAssistant) EmbeddingModel() string { return "test-embedding" }

func (a *fakeAssistant) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	a.embedCalls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (a *fakeAssistant) EmbedQuery(ctx context.Context, q string) ([]float32, error) {
	return []float32{0, 1}, nil
}

func (a *fakeAssistant) Answer(ctx context.Context, q string, video *domain.Metadata, matches []domain.Match) (string, error) {
	a.answerCalls++
	a.lastQuestion = q
	a.lastMatches = matches
	if a.answerErr != nil {
		return "", a.answerErr
	}
	return "  people loved the chorus  ", nil
}

func (a *fakeAssistant) Summarize(ctx context.Context, video *domain.Video, cs []domain.Comment, n int) (string, error) {
	if a.summaryErr != nil {
		return "", a.summaryErr
	}
	return "mostly positive", nil
}

type fakeIndex struct {
	docs     map[string][]domain.Document
	released int
}

func (i *fakeIndex) Replace(ctx context.Context, id string, docs []domain.Document) error {
	if i.docs == nil {
		i.docs = map[string][]domain.Document{}
	}
	i.docs[id] = docs
	return nil
}

func (i *fakeIndex) Search(ctx context.Context, id string, q []float32, k int) ([]domain.Match, error) {
	var out []domain.Match
	for _, d := range i.docs[id] {
		if len(out) == k {
			break
		}
		out = append(out, domain.Match{Comment: d.Comment, Score: 0.5})
	}
	return out, nil
}

func (i *fakeIndex) Count(ctx context.Context, id string) (int, error) { return len(i.docs[id]), nil }
func (i *fakeIndex) Release()                                          { i.released++ }
func (i *fakeIndex) Close() error                                      { return nil }

type fakeWorkspace struct {
	exists  bool
	meta    map[string]*domain.Metadata
	current string
	readErr error
}

func (w *fakeWorkspace) Exists() bool { return w.exists }

func (w *fakeWorkspace) WriteMetadata(id string, m *domain.Metadata) error {
	if w.meta == nil {
		w.meta = map[string]*domain.Metadata{}
	}
	w.meta[id] = m
	w.exists = true
	return nil
}

func (w *fakeWorkspace) ReadMetadata(id string) (any, bool, error) {
	if w.readErr != nil {
		return nil, false, w.readErr
	}
	m, ok := w.meta[id]
	if !ok {
		return nil, false, nil
	}
	return map[string]any{"video_id": m.VideoID, "title": m.Title}, true, nil
}

func (w *fakeWorkspace) LoadMetadata(id string) (*domain.Metadata, error) {
	m, ok := w.meta[id]
	if !ok {
		return nil, errors.New("missing")
	}
	return m, nil
}

func (w *fakeWorkspace) SetCurrent(id string) error { w.current = id; return nil }
func (w *fakeWorkspace) Current() (string, error)   { return w.current, nil }

type fakeSnapshots struct{ keys []string }

func (s *fakeSnapshots) PutJSON(ctx context.Context, key string, v any) (string, error) {
	s.keys = append(s.keys, key)
	return "http://minio/bucket/" + key, nil
}

type memFailures struct{ saved []*history.Failure }

func (m *memFailures) Save(ctx context.Context, f *history.Failure) error {
	m.saved = append(m.saved, f)
	return nil
}

func (m *memFailures) List(ctx context.Context, videoID string, limit int) ([]*history.Failure, error) {
	return m.saved, nil
}

type memQuestions struct{ saved []*history.Question }

func (m *memQuestions) Save(ctx context.Context, q *history.Question) error {
	m.saved = append(m.saved, q)
	return nil
}

func (m *memQuestions) Paginate(ctx context.Context, page, size int) ([]*history.Question, error) {
	return m.saved, nil
}

type fixture struct {
	svc       *Service
	fetcher   *fakeFetcher
	assistant *fakeAssistant
	index     *fakeIndex
	ws        *fakeWorkspace
	failures  *memFailures
	questions *memQuestions
}

func newFixture() *fixture {
	f := &fixture{
		fetcher: &fakeFetcher{
			video: &domain.Video{Title: "Never Gonna Give You Up", Channel: "Rick Astley"},
			comments: []domain.Comment{
				{ID: "c1", Author: "ann", Text: "Classic!", Likes: 10},
				{ID: "c2", Author: "bob", Text: "   ", Likes: 99},
				{ID: "c3", Author: "cat", Text: "the chorus is great", Likes: 40},
				{ID: "c1", Author: "ann", Text: "Classic!", Likes: 10},
				{ID: "c4", Author: "dan", Text: "classic!", Likes: 1},
			},
		},
		assistant: &fakeAssistant{},
		index:     &fakeIndex{},
		ws:        &fakeWorkspace{},
		failures:  &memFailures{},
		questions: &memQuestions{},
	}
	f.svc = &Service{
		Fetcher:   f.fetcher,
		Assistant: f.assistant,
		Index:     f.index,
		Workspace: f.ws,
		History:   history.Repositories{Failures: f.failures, Questions: f.questions},
		Clock:     &stepClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), step: time.Second},
		Config:    Config{Summarize: true, DefaultK: 3, MaxK: 5},
	}
	return f
}

func TestAnalyzeYouTubeComments(t *testing.T) {
	f := newFixture()
	snaps := &fakeSnapshots{}
	f.svc.Snapshots = snaps

	res, err := f.svc.AnalyzeYouTubeComments(context.Background(), testURL)
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", res.VideoID)
	assert.Equal(t, "Never Gonna Give You Up", res.Title)
	assert.Equal(t, 5, res.TotalComments)
	assert.Equal(t, 2, res.IndexedComments)
	assert.Equal(t, "mostly positive", res.Summary)
	assert.Equal(t, "2.00 seconds", res.ProcessingTime)
	require.Len(t, res.TopComments, 2)
	assert.Equal(t, "cat", res.TopComments[0].Author)
	assert.Equal(t, "http://minio/bucket/dQw4w9WgXcQ/20260102T030406Z/video_metadata.json", res.SnapshotURL)
	assert.Len(t, snaps.keys, 2)

	assert.Equal(t, "dQw4w9WgXcQ", f.svc.CurrentVideoID())
	assert.Equal(t, "dQw4w9WgXcQ", f.ws.current)
	assert.Len(t, f.index.docs["dQw4w9WgXcQ"], 2)
	assert.Equal(t, 500, f.fetcher.limit)
	assert.Equal(t, "test-embedding", f.ws.meta["dQw4w9WgXcQ"].EmbeddingModel)
}

func TestAnalyzeSummaryFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.assistant.summaryErr = errors.New("model down")

	res, err := f.svc.AnalyzeYouTubeComments(context.Background(), testURL)
	require.NoError(t, err)
	assert.Empty(t, res.Summary)
}

func TestAnalyzeErrors(t *testing.T) {
	t.Run("invalid url", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.AnalyzeYouTubeComments(context.Background(), "https://example.com")
		assert.ErrorIs(t, err, domain.ErrInvalidVideoURL)
		assert.Zero(t, f.assistant.embedCalls)
		require.Len(t, f.failures.saved, 1)
		assert.Equal(t, history.ActionAnalyze, f.failures.saved[0].Action)
	})

	t.Run("fetch failure", func(t *testing.T) {
		f := newFixture()
		f.fetcher.err = domain.ErrVideoNotFound
		_, err := f.svc.AnalyzeYouTubeComments(context.Background(), testURL)
		assert.ErrorIs(t, err, domain.ErrVideoNotFound)
		assert.Empty(t, f.svc.CurrentVideoID())
		require.Len(t, f.failures.saved, 1)
		assert.Equal(t, "dQw4w9WgXcQ", f.failures.saved[0].VideoID)
	})

	t.Run("no comments", func(t *testing.T) {
		f := newFixture()
		f.fetcher.comments = []domain.Comment{{ID: "x", Text: " "}}
		_, err := f.svc.AnalyzeYouTubeComments(context.Background(), testURL)
		assert.ErrorIs(t, err, domain.ErrNoComments)
	})
}

func TestAnswerQuestion(t *testing.T) {
	f := newFixture()
	_, err := f.svc.AnalyzeYouTubeComments(context.Background(), testURL)
	require.NoError(t, err)

	k := 4
	ans, err := f.svc.AnswerQuestion(context.Background(), "  what do people like?  ", &k)
	require.NoError(t, err)

	assert.Equal(t, "people loved the chorus", ans.Answer)
	// only two comments are indexed
	assert.Equal(t, 2, ans.KUsed)
	assert.Equal(t, "dQw4w9WgXcQ", ans.VideoID)
	assert.Len(t, ans.Sources, 2)
	assert.Equal(t, "what do people like?", f.assistant.lastQuestion)
	require.Len(t, f.questions.saved, 1)
	assert.Equal(t, 2, f.questions.saved[0].KUsed)
}

func TestAnswerQuestionKResolution(t *testing.T) {
	f := newFixture()
	f.svc.Config.DefaultK = 1
	_, err := f.svc.AnalyzeYouTubeComments(context.Background(), testURL)
	require.NoError(t, err)

	ans, err := f.svc.AnswerQuestion(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ans.KUsed)

	zero := 0
	_, err = f.svc.AnswerQuestion(context.Background(), "q", &zero)
	assert.ErrorIs(t, err, domain.ErrInvalidK)
}

func TestAnswerQuestionErrors(t *testing.T) {
	t.Run("empty question", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.AnswerQuestion(context.Background(), "   ", nil)
		assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
		assert.Zero(t, f.assistant.answerCalls)
	})

	t.Run("nothing analyzed", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.AnswerQuestion(context.Background(), "hello?", nil)
		assert.ErrorIs(t, err, domain.ErrNoDatabase)
		assert.Zero(t, f.assistant.answerCalls)
	})

	t.Run("model failure", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.AnalyzeYouTubeComments(context.Background(), testURL)
		require.NoError(t, err)
		f.assistant.answerErr = errors.New("boom")

		_, err = f.svc.AnswerQuestion(context.Background(), "hello?", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		require.Len(t, f.failures.saved, 1)
		assert.Equal(t, history.ActionAnswer, f.failures.saved[0].Action)
		assert.Equal(t, "hello?", f.failures.saved[0].Input)
	})
}

func TestStatus(t *testing.T) {
	f := newFixture()
	st := f.svc.Status()
	assert.False(t, st.DatabaseExists)
	assert.Empty(t, st.CurrentVideoID)
	assert.Nil(t, st.Metadata)

	_, err := f.svc.AnalyzeYouTubeComments(context.Background(), testURL)
	require.NoError(t, err)

	st = f.svc.Status()
	assert.True(t, st.DatabaseExists)
	assert.Equal(t, "dQw4w9WgXcQ", st.CurrentVideoID)
	assert.Equal(t, map[string]any{"video_id": "dQw4w9WgXcQ", "title": "Never Gonna Give You Up"}, st.Metadata)

	f.ws.readErr = errors.New("unexpected end of JSON input")
	st = f.svc.Status()
	assert.Nil(t, st.Metadata)
	assert.Equal(t, "unexpected end of JSON input", st.MetadataError)
}

func TestRestoreAndCloseConnection(t *testing.T) {
	f := newFixture()
	f.ws.current = "abcdefghijk"
	f.ws.exists = true

	require.NoError(t, f.svc.Restore())
	assert.Equal(t, "abcdefghijk", f.svc.CurrentVideoID())

	f.svc.CloseConnection()
	assert.Equal(t, 1, f.index.released)
}
