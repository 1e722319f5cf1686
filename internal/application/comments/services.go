package comments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/comment-analyzer/internal/application"
	appai "github.com/bryanwahyu/comment-analyzer/internal/application/ai"
	domain "github.com/bryanwahyu/comment-analyzer/internal/domain/comments"
	"github.com/bryanwahyu/comment-analyzer/internal/domain/history"
)

// Assistant is the AI side of the service; *appai.Service satisfies it.
type Assistant interface {
	EmbeddingModel() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, q string) ([]float32, error)
	Answer(ctx context.Context, question string, video *domain.Metadata, matches []domain.Match) (string, error)
	Summarize(ctx context.Context, video *domain.Video, cs []domain.Comment, sampleSize int) (string, error)
}

var _ Assistant = (*appai.Service)(nil)

type Config struct {
	MaxComments   int
	DefaultK      int
	MaxK          int
	Summarize     bool
	SummarySample int
	TopComments   int
}

func (c Config) withDefaults() Config {
	if c.MaxComments <= 0 {
		c.MaxComments = 500
	}
	if c.DefaultK <= 0 {
		c.DefaultK = 10
	}
	if c.MaxK <= 0 {
		c.MaxK = 50
	}
	if c.DefaultK > c.MaxK {
		c.DefaultK = c.MaxK
	}
	if c.SummarySample <= 0 {
		c.SummarySample = 50
	}
	if c.TopComments <= 0 {
		c.TopComments = 5
	}
	return c
}

// Service implements use-cases untuk analisa komentar YouTube.
// Safe for concurrent use; analyses are serialised.
type Service struct {
	Fetcher   domain.Fetcher
	Assistant Assistant
	Index     domain.Index
	Workspace domain.Workspace
	Snapshots domain.SnapshotStore // optional
	History   history.Repositories // any field may be nil
	Clock     application.Clock
	Logger    *slog.Logger
	Config    Config

	analyzeMu sync.Mutex

	mu          sync.RWMutex
	currentID   string
	currentMeta *domain.Metadata
}

// Restore picks up the current video left behind by a previous run.
func (s *Service) Restore() error {
	id, err := s.Workspace.Current()
	if err != nil {
		return fmt.Errorf("reading current video: %w", err)
	}
	if id == "" {
		return nil
	}
	meta, err := s.Workspace.LoadMetadata(id)
	if err != nil {
		s.logger().Warn("metadata for current video unreadable", "video_id", id, "err", err)
	}
	s.setCurrent(id, meta)
	s.logger().Info("restored current video", "video_id", id)
	return nil
}

// CurrentVideoID returns the id of the last analyzed video, or "".
func (s *Service) CurrentVideoID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

// DatabaseExists reports whether the local index directory is present.
func (s *Service) DatabaseExists() bool {
	return s.Workspace.Exists()
}

// CloseConnection releases index handles before a new analysis.
func (s *Service) CloseConnection() {
	s.Index.Release()
}

// Status collects what the status panel displays. Metadata read errors are
// reported in the result, never returned.
func (s *Service) Status() domain.Status {
	st := domain.Status{
		DatabaseExists: s.Workspace.Exists(),
		CurrentVideoID: s.CurrentVideoID(),
	}
	if st.CurrentVideoID == "" {
		return st
	}
	md, ok, err := s.Workspace.ReadMetadata(st.CurrentVideoID)
	switch {
	case err != nil:
		st.MetadataError = err.Error()
	case ok:
		st.Metadata = md
	}
	return st
}

//
// ==== USE CASES ====
//

// AnalyzeYouTubeComments fetches, embeds and indexes the comments of the
// video behind rawURL and makes it the current video.
func (s *Service) AnalyzeYouTubeComments(ctx context.Context, rawURL string) (*domain.AnalysisResult, error) {
	res, err := s.analyze(ctx, rawURL)
	if err != nil {
		videoID, _ := domain.ExtractVideoID(rawURL)
		s.recordFailure(ctx, history.ActionAnalyze, videoID, rawURL, err)
		return nil, err
	}
	return res, nil
}

func (s *Service) analyze(ctx context.Context, rawURL string) (*domain.AnalysisResult, error) {
	cfg := s.Config.withDefaults()
	start := s.Clock.Now()

	videoID, err := domain.ExtractVideoID(rawURL)
	if err != nil {
		return nil, err
	}

	s.analyzeMu.Lock()
	defer s.analyzeMu.Unlock()

	log := s.logger().With("video_id", videoID)
	log.Info("analysis started", "url", rawURL)

	video, err := s.Fetcher.Video(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("fetching video: %w", err)
	}
	fetched, err := s.Fetcher.Comments(ctx, videoID, cfg.MaxComments)
	if err != nil {
		return nil, fmt.Errorf("fetching comments: %w", err)
	}
	cs := dedupe(fetched)
	if len(cs) == 0 {
		return nil, domain.ErrNoComments
	}
	log.Info("comments fetched", "fetched", len(fetched), "kept", len(cs))

	texts := make([]string, len(cs))
	for i, c := range cs {
		texts[i] = c.Text
	}
	vecs, err := s.Assistant.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding comments: %w", err)
	}
	docs := make([]domain.Document, len(cs))
	for i, c := range cs {
		docs[i] = domain.Document{Comment: c, Embedding: vecs[i]}
	}
	if err := s.Index.Replace(ctx, videoID, docs); err != nil {
		return nil, fmt.Errorf("indexing comments: %w", err)
	}

	var summary string
	if cfg.Summarize {
		summary, err = s.Assistant.Summarize(ctx, video, cs, cfg.SummarySample)
		if err != nil {
			// summary is optional, the index is already usable
			log.Warn("summary failed", "err", err)
			summary = ""
		}
	}

	analyzedAt := s.Clock.Now()
	meta := &domain.Metadata{
		VideoID:         videoID,
		URL:             strings.TrimSpace(rawURL),
		Title:           video.Title,
		Channel:         video.Channel,
		PublishedAt:     video.PublishedAt,
		Views:           video.Views,
		TotalComments:   len(fetched),
		IndexedComments: len(docs),
		EmbeddingModel:  s.Assistant.EmbeddingModel(),
		Summary:         strings.TrimSpace(summary),
		AnalyzedAt:      analyzedAt,
	}
	if err := s.Workspace.WriteMetadata(videoID, meta); err != nil {
		return nil, fmt.Errorf("writing metadata: %w", err)
	}
	if err := s.Workspace.SetCurrent(videoID); err != nil {
		return nil, fmt.Errorf("saving current video: %w", err)
	}
	s.setCurrent(videoID, meta)

	res := &domain.AnalysisResult{
		VideoID:         videoID,
		URL:             meta.URL,
		Title:           meta.Title,
		Channel:         meta.Channel,
		TotalComments:   meta.TotalComments,
		IndexedComments: meta.IndexedComments,
		Summary:         meta.Summary,
		TopComments:     topComments(cs, cfg.TopComments),
		AnalyzedAt:      analyzedAt,
	}

	if s.Snapshots != nil {
		url, err := s.snapshot(ctx, meta, cs)
		if err != nil {
			log.Warn("snapshot upload failed", "err", err)
		} else {
			res.SnapshotURL = url
		}
	}

	elapsed := s.Clock.Now().Sub(start)
	res.ProcessingTime = application.FormatDuration(elapsed)
	log.Info("analysis finished", "indexed", len(docs), "duration", elapsed)

	s.recordAnalysis(ctx, res, elapsed)
	return res, nil
}

// AnswerQuestion answers question from the k comments of the current video
// closest to it. A nil k means the configured default.
func (s *Service) AnswerQuestion(ctx context.Context, question string, k *int) (*domain.Answer, error) {
	ans, err := s.answer(ctx, question, k)
	if err != nil {
		s.recordFailure(ctx, history.ActionAnswer, s.CurrentVideoID(), question, err)
		return nil, err
	}
	return ans, nil
}

func (s *Service) answer(ctx context.Context, question string, k *int) (*domain.Answer, error) {
	start := s.Clock.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}
	want, err := s.resolveK(k)
	if err != nil {
		return nil, err
	}

	videoID, meta := s.current()
	if videoID == "" || !s.Workspace.Exists() {
		return nil, domain.ErrNoDatabase
	}
	count, err := s.Index.Count(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("counting indexed comments: %w", err)
	}
	if count == 0 {
		return nil, domain.ErrNoDatabase
	}
	if want > count {
		want = count
	}

	qv, err := s.Assistant.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	matches, err := s.Index.Search(ctx, videoID, qv, want)
	if err != nil {
		return nil, fmt.Errorf("searching comments: %w", err)
	}
	text, err := s.Assistant.Answer(ctx, question, meta, matches)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	elapsed := s.Clock.Now().Sub(start)
	ans := &domain.Answer{
		Answer:         strings.TrimSpace(text),
		KUsed:          len(matches),
		ProcessingTime: application.FormatDuration(elapsed),
		VideoID:        videoID,
	}
	for _, m := range matches {
		ans.Sources = append(ans.Sources, domain.Source{
			Author: m.Comment.Author,
			Text:   m.Comment.Text,
			Likes:  m.Comment.Likes,
			Score:  m.Score,
		})
	}
	s.logger().Info("question answered", "video_id", videoID, "k_used", ans.KUsed, "duration", elapsed)

	s.recordQuestion(ctx, question, ans, elapsed)
	return ans, nil
}

func (s *Service) resolveK(k *int) (int, error) {
	cfg := s.Config.withDefaults()
	if k == nil {
		return cfg.DefaultK, nil
	}
	if *k < 1 {
		return 0, domain.ErrInvalidK
	}
	if *k > cfg.MaxK {
		return cfg.MaxK, nil
	}
	return *k, nil
}

func (s *Service) current() (string, *domain.Metadata) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID, s.currentMeta
}

func (s *Service) setCurrent(id string, meta *domain.Metadata) {
	s.mu.Lock()
	s.currentID = id
	s.currentMeta = meta
	s.mu.Unlock()
}

func (s *Service) snapshot(ctx context.Context, meta *domain.Metadata, cs []domain.Comment) (string, error) {
	prefix := fmt.Sprintf("%s/%s", meta.VideoID, meta.AnalyzedAt.UTC().Format("20060102T150405Z"))
	if _, err := s.Snapshots.PutJSON(ctx, prefix+"/comments.json", cs); err != nil {
		return "", err
	}
	return s.Snapshots.PutJSON(ctx, prefix+"/"+domain.MetadataFile, meta)
}

func (s *Service) recordAnalysis(ctx context.Context, res *domain.AnalysisResult, elapsed time.Duration) {
	if s.History.Analyses == nil {
		return
	}
	raw, _ := json.Marshal(res)
	a := &history.Analysis{
		ID:              uuid.New().String(),
		VideoID:         res.VideoID,
		URL:             res.URL,
		Title:           res.Title,
		TotalComments:   res.TotalComments,
		IndexedComments: res.IndexedComments,
		Result:          string(raw),
		DurationMS:      elapsed.Milliseconds(),
		CreatedAt:       res.AnalyzedAt,
	}
	if err := s.History.Analyses.Save(ctx, a); err != nil {
		s.logger().Warn("saving analysis history failed", "video_id", res.VideoID, "err", err)
	}
}

func (s *Service) recordQuestion(ctx context.Context, question string, ans *domain.Answer, elapsed time.Duration) {
	if s.History.Questions == nil {
		return
	}
	q := &history.Question{
		ID:         uuid.New().String(),
		VideoID:    ans.VideoID,
		Question:   question,
		Answer:     ans.Answer,
		KUsed:      ans.KUsed,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  s.Clock.Now(),
	}
	if err := s.History.Questions.Save(ctx, q); err != nil {
		s.logger().Warn("saving question history failed", "video_id", ans.VideoID, "err", err)
	}
}

func (s *Service) recordFailure(ctx context.Context, action, videoID, input string, cause error) {
	level := slog.LevelError
	if isInputError(cause) {
		level = slog.LevelInfo
	}
	s.logger().Log(ctx, level, action+" failed", "video_id", videoID, "err", cause)

	if s.History.Failures == nil {
		return
	}
	f := &history.Failure{
		VideoID:   videoID,
		Action:    action,
		Input:     input,
		Message:   cause.Error(),
		CreatedAt: s.Clock.Now(),
	}
	// a cancelled request must still leave a trace
	if err := s.History.Failures.Save(context.WithoutCancel(ctx), f); err != nil {
		s.logger().Warn("saving failure failed", "action", action, "err", err)
	}
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func isInputError(err error) bool {
	return errors.Is(err, domain.ErrEmptyURL) ||
		errors.Is(err, domain.ErrInvalidVideoURL) ||
		errors.Is(err, domain.ErrEmptyQuestion) ||
		errors.Is(err, domain.ErrInvalidK) ||
		errors.Is(err, domain.ErrNoDatabase)
}

// dedupe drops blank comments and repeats of the same id or text.
func dedupe(in []domain.Comment) []domain.Comment {
	seenID := make(map[string]bool, len(in))
	seenText := make(map[string]bool, len(in))
	out := make([]domain.Comment, 0, len(in))
	for _, c := range in {
		c.Text = strings.TrimSpace(c.Text)
		if c.Text == "" {
			continue
		}
		key := strings.ToLower(c.Text)
		if (c.ID != "" && seenID[c.ID]) || seenText[key] {
			continue
		}
		seenID[c.ID] = true
		seenText[key] = true
		out = append(out, c)
	}
	return out
}

func topComments(cs []domain.Comment, n int) []domain.TopComment {
	out := make([]domain.TopComment, 0, n)
	for _, c := range appai.MostLiked(cs, n) {
		out = append(out, domain.TopComment{Author: c.Author, Text: c.Text, Likes: c.Likes})
	}
	return out
}
