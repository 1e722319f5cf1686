package httpserver

import (
    "context"
    "encoding/json"
    "errors"
    "log/slog"
    "net/http"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/cors"

    domai "github.com/bryanwahyu/comment-analyzer/internal/domain/ai"
    domain "github.com/bryanwahyu/comment-analyzer/internal/domain/comments"
    "github.com/bryanwahyu/comment-analyzer/internal/domain/history"
    "github.com/bryanwahyu/comment-analyzer/internal/middleware"
)

const maxBodyBytes = 1 << 20

// CommentService is what the router needs from the comments use-cases.
type CommentService interface {
    Status() domain.Status
    DatabaseExists() bool
    CloseConnection()
    AnalyzeYouTubeComments(ctx context.Context, url string) (*domain.AnalysisResult, error)
    AnswerQuestion(ctx context.Context, question string, k *int) (*domain.Answer, error)
}

type HistoryService interface {
    ListAnalyses(ctx context.Context, page, pageSize int) ([]*history.Analysis, error)
    LatestAnalysis(ctx context.Context, videoID string) (*history.Analysis, error)
    ListQuestions(ctx context.Context, page, pageSize int) ([]*history.Question, error)
    ListFailures(ctx context.Context, videoID string, limit int) ([]*history.Failure, error)
}

type Options struct {
    Logger      *slog.Logger
    APIKeys     map[string]string // empty disables auth on /api
    CORSOrigins []string
    RateLimit   int // requests per minute on /api, 0 disables
    SessionTTL  time.Duration
    DefaultK    int
    Checkers    map[string]middleware.HealthChecker
    Ready       func() bool
}

type Router struct {
    http.Handler

    comments CommentService
    history  HistoryService
    sessions *SessionStore
    limiter  *middleware.RateLimiter
    logger   *slog.Logger
    defaultK int
}

// NewRouter builds the handler. Close it on shutdown to stop the rate
// limiter's cleanup loop.
func NewRouter(commentsSvc CommentService, historySvc HistoryService, opts Options) *Router {
    logger := opts.Logger
    if logger == nil {
        logger = slog.Default()
    }
    r := &Router{
        comments: commentsSvc,
        history:  historySvc,
        sessions: NewSessionStore(opts.SessionTTL),
        logger:   logger,
        defaultK: opts.DefaultK,
    }
    if opts.RateLimit > 0 {
        r.limiter = middleware.PerMinute(opts.RateLimit)
    }
    mux := chi.NewRouter()
    // recover sits inside logging so a panicking request is still logged as 500
    mux.Use(middleware.LoggingMiddleware(logger))
    mux.Use(middleware.Recoverer(logger))
    mux.Use(middleware.MetricsMiddleware)

    mux.Get("/health", middleware.HealthHandler(opts.Checkers))
    mux.Get("/ready", middleware.ReadinessHandler(opts.Ready))
    mux.Get("/live", middleware.LivenessHandler)
    mux.Get("/metrics", middleware.MetricsHandler)

    // halaman web
    mux.Get("/", r.handleIndex)
    mux.Post("/analyze", r.handleAnalyzePage)
    mux.Post("/ask", r.handleAskPage)

    mux.Route("/api", func(rt chi.Router) {
        rt.Use(cors.Handler(cors.Options{
            AllowedOrigins: opts.CORSOrigins,
            AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
            AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
            MaxAge:         300,
        }))
        if len(opts.APIKeys) > 0 {
            rt.Use(middleware.APIKeyAuth(opts.APIKeys))
        }
        if r.limiter != nil {
            rt.Use(middleware.RateLimitMiddleware(r.limiter))
        }

        rt.Get("/status", r.wrap(r.handleStatus))
        rt.Post("/analyze", r.wrap(r.handleAnalyze))
        rt.Post("/answer", r.wrap(r.handleAnswer))

        if historySvc != nil {
            rt.Get("/history/analyses", r.wrap(r.handleAnalysesList))
            rt.Get("/history/analyses/{video_id}/latest", r.wrap(r.handleLatestAnalysis))
            rt.Get("/history/questions", r.wrap(r.handleQuestionsList))
            rt.Get("/history/failures", r.wrap(r.handleFailuresList))
        }
    })

    r.Handler = mux
    return r
}

// Close stops background work started by NewRouter.
func (r *Router) Close() {
    if r.limiter != nil {
        r.limiter.Close()
    }
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
    return func(w http.ResponseWriter, req *http.Request) {
        if err := h(w, req); err != nil {
            code := statusFor(err)
            if code >= http.StatusInternalServerError {
                r.logger.Error("request failed", "path", req.URL.Path, "err", err)
            }
            http.Error(w, err.Error(), code)
        }
    }
}

type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error { return badRequestError{err: err} }

func statusFor(err error) int {
    var br badRequestError
    switch {
    case errors.As(err, &br),
        errors.Is(err, domain.ErrEmptyURL),
        errors.Is(err, domain.ErrInvalidVideoURL),
        errors.Is(err, domain.ErrEmptyQuestion),
        errors.Is(err, domain.ErrInvalidK):
        return http.StatusBadRequest
    case errors.Is(err, domain.ErrVideoNotFound),
        errors.Is(err, domain.ErrNoComments),
        errors.Is(err, domain.ErrNoDatabase),
        errors.Is(err, history.ErrNotFound):
        return http.StatusNotFound
    case errors.Is(err, domai.ErrQuotaExceeded),
        errors.Is(err, domain.ErrYouTubeQuota):
        return http.StatusTooManyRequests
    }
    return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, v any) error {
    w.Header().Set("Content-Type", "application/json")
    return json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, req *http.Request, v any) error {
    req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
    if err := json.NewDecoder(req.Body).Decode(v); err != nil {
        return badRequest(err)
    }
    return nil
}

// GET /api/status
func (r *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
    return writeJSON(w, r.comments.Status())
}

// POST /api/analyze
// Body: {"url": "<youtube url>"}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
    var body struct {
        URL string `json:"url"`
    }
    if err := decodeJSON(w, req, &body); err != nil {
        return err
    }
    res, err := r.analyze(req, body.URL)
    if err != nil {
        return err
    }
    return writeJSON(w, res)
}

// POST /api/answer
// Body: {"question": "...", "k": 5}; k is optional
func (r *Router) handleAnswer(w http.ResponseWriter, req *http.Request) error {
    var body struct {
        Question string `json:"question"`
        K        *int   `json:"k"`
    }
    if err := decodeJSON(w, req, &body); err != nil {
        return err
    }
    ans, err := r.answerK(req, body.Question, body.K)
    if err != nil {
        return err
    }
    return writeJSON(w, ans)
}

// GET /api/history/analyses?page=&page_size=
func (r *Router) handleAnalysesList(w http.ResponseWriter, req *http.Request) error {
    page, size := pagination(req)
    list, err := r.history.ListAnalyses(req.Context(), page, size)
    if err != nil {
        return err
    }
    return writeJSON(w, list)
}

// GET /api/history/analyses/{video_id}/latest
func (r *Router) handleLatestAnalysis(w http.ResponseWriter, req *http.Request) error {
    a, err := r.history.LatestAnalysis(req.Context(), chi.URLParam(req, "video_id"))
    if err != nil {
        return err
    }
    return writeJSON(w, a)
}

// GET /api/history/questions?page=&page_size=
func (r *Router) handleQuestionsList(w http.ResponseWriter, req *http.Request) error {
    page, size := pagination(req)
    list, err := r.history.ListQuestions(req.Context(), page, size)
    if err != nil {
        return err
    }
    return writeJSON(w, list)
}

// GET /api/history/failures?video_id=&limit=
func (r *Router) handleFailuresList(w http.ResponseWriter, req *http.Request) error {
    limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
    videoID := middleware.SanitizeString(req.URL.Query().Get("video_id"))
    list, err := r.history.ListFailures(req.Context(), videoID, middleware.ValidateLimit(limit))
    if err != nil {
        return err
    }
    return writeJSON(w, list)
}

func pagination(req *http.Request) (int, int) {
    page, _ := strconv.Atoi(req.URL.Query().Get("page"))
    size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))
    return middleware.ValidatePage(page), middleware.ValidateLimit(size)
}
