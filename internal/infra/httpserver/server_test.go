package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domai "github.com/bryanwahyu/comment-analyzer/internal/domain/ai"
	domain "github.com/bryanwahyu/comment-analyzer/internal/domain/comments"
	"github.com/bryanwahyu/comment-analyzer/internal/domain/history"
	"github.com/bryanwahyu/comment-analyzer/internal/infra/db/memory"
	apphistory "github.com/bryanwahyu/comment-analyzer/internal/application/history"
)

type fakeComments struct {
	status     domain.Status
	dbExists   bool
	result     *domain.AnalysisResult
	analyzeErr error
	answer     *domain.Answer
	answerErr  error

	calls       []string
	gotURL      string
	gotQuestion string
	gotK        *int
}

func (f *fakeComments) Status() domain.Status { return f.status }
func (f *fakeComments) DatabaseExists() bool  { return f.dbExists }
func (f *fakeComments) CloseConnection()      { f.calls = append(f.calls, "close") }

func (f *fakeComments) AnalyzeYouTubeComments(ctx context.Context, u string) (*domain.AnalysisResult, error) {
	f.calls = append(f.calls, "analyze")
	f.gotURL = u
	return f.result, f.analyzeErr
}

func (f *fakeComments) AnswerQuestion(ctx context.Context, q string, k *int) (*domain.Answer, error) {
	f.calls = append(f.calls, "answer")
	f.gotQuestion, f.gotK = q, k
	return f.answer, f.answerErr
}

func sampleResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		VideoID:         "dQw4w9WgXcQ",
		URL:             "https://youtu.be/dQw4w9WgXcQ",
		Title:           `Rick & "Roll" <live>`,
		Channel:         "Rick Astley",
		TotalComments:   12,
		IndexedComments: 10,
		TopComments:     []domain.TopComment{{Author: "ann", Text: "it's a classic", Likes: 42}},
		ProcessingTime:  "3.21 seconds",
		AnalyzedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func newTestServer(t *testing.T, svc *fakeComments, opts Options) *httptest.Server {
	t.Helper()
	hist := &apphistory.Service{Repos: memory.NewRepositories()}
	router := NewRouter(svc, hist, opts)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		router.Close()
	})
	return srv
}

func postForm(t *testing.T, client *http.Client, target string, form url.Values) (int, string) {
	t.Helper()
	resp, err := client.PostForm(target, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, html.UnescapeString(string(b))
}

func TestAnalyzePageEmptyURL(t *testing.T) {
	svc := &fakeComments{}
	srv := newTestServer(t, svc, Options{})

	for _, u := range []string{"", "   "} {
		code, body := postForm(t, srv.Client(), srv.URL+"/analyze", url.Values{"url": {u}})
		assert.Equal(t, http.StatusOK, code)
		assert.Contains(t, body, msgEmptyURL)
	}
	assert.Empty(t, svc.calls)
}

func TestAnalyzePageSuccess(t *testing.T) {
	res := sampleResult()
	svc := &fakeComments{result: res}
	srv := newTestServer(t, svc, Options{})

	code, body := postForm(t, srv.Client(), srv.URL+"/analyze", url.Values{"url": {res.URL}})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"close", "analyze"}, svc.calls)
	assert.Equal(t, res.URL, svc.gotURL)
	assert.Contains(t, body, msgAnalyzeDone)
	assert.Contains(t, body, prettyJSON(res))
}

func TestAnalyzePageFailure(t *testing.T) {
	svc := &fakeComments{analyzeErr: errors.New("video unavailable")}
	srv := newTestServer(t, svc, Options{})

	code, body := postForm(t, srv.Client(), srv.URL+"/analyze", url.Values{"url": {"https://youtu.be/x"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Error during analysis: video unavailable")
}

func TestLatestResultIsPerSession(t *testing.T) {
	res := sampleResult()
	svc := &fakeComments{result: res}
	srv := newTestServer(t, svc, Options{})

	jar := newJar(t)
	client := &http.Client{Jar: jar}
	postForm(t, client, srv.URL+"/analyze", url.Values{"url": {res.URL}})

	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, html.UnescapeString(string(b)), prettyJSON(res))

	other := &http.Client{Jar: newJar(t)}
	resp, err = other.Get(srv.URL + "/")
	require.NoError(t, err)
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.NotContains(t, string(b), `id="analysis-result"`)
}

func TestAskPageValidation(t *testing.T) {
	tests := []struct {
		name     string
		question string
		dbExists bool
		want     string
	}{
		{"empty question", "", true, msgEmptyQuestion},
		{"blank question", "  ", false, msgEmptyQuestion},
		{"no database", "what do people like?", false, msgNoDatabase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeComments{dbExists: tt.dbExists}
			srv := newTestServer(t, svc, Options{})
			_, body := postForm(t, srv.Client(), srv.URL+"/ask", url.Values{"question": {tt.question}})
			assert.Contains(t, body, tt.want)
			assert.Empty(t, svc.calls)
		})
	}
}

func TestAskPageSuccess(t *testing.T) {
	ans := &domain.Answer{Answer: "People love the chorus [1].", KUsed: 3, ProcessingTime: "1.50 seconds"}
	svc := &fakeComments{dbExists: true, answer: ans}
	srv := newTestServer(t, svc, Options{DefaultK: 10})

	_, body := postForm(t, srv.Client(), srv.URL+"/ask", url.Values{"question": {"what do people like?"}, "k": {"3"}})
	assert.Equal(t, []string{"answer"}, svc.calls)
	assert.Equal(t, "what do people like?", svc.gotQuestion)
	require.NotNil(t, svc.gotK)
	assert.Equal(t, 3, *svc.gotK)
	assert.Contains(t, body, msgAnswerGenerated)
	assert.Contains(t, body, "People love the chorus [1].")
	assert.Contains(t, body, "Used 3 comments | Time: 1.50 seconds")
}

func TestAskPageDefaultK(t *testing.T) {
	svc := &fakeComments{dbExists: true, answer: &domain.Answer{Answer: "a", KUsed: 10, ProcessingTime: "0.10 seconds"}}
	srv := newTestServer(t, svc, Options{DefaultK: 10})

	_, body := postForm(t, srv.Client(), srv.URL+"/ask", url.Values{"question": {"q"}})
	assert.Nil(t, svc.gotK)
	assert.Contains(t, body, `placeholder="10"`)
}

func TestAskPageFailure(t *testing.T) {
	svc := &fakeComments{dbExists: true, answerErr: fmt.Errorf("generating answer: %w", domai.ErrQuotaExceeded)}
	srv := newTestServer(t, svc, Options{})

	code, body := postForm(t, srv.Client(), srv.URL+"/ask", url.Values{"question": {"q"}})
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Error while answering: generating answer: ai quota exceeded")

	_, body = postForm(t, srv.Client(), srv.URL+"/ask", url.Values{"question": {"q"}, "k": {"many"}})
	assert.Contains(t, body, `Error while answering: k must be a whole number, got "many"`)
}

func TestStatusSidebar(t *testing.T) {
	svc := &fakeComments{status: domain.Status{
		DatabaseExists: true,
		CurrentVideoID: "dQw4w9WgXcQ",
		Metadata:       map[string]any{"title": "Never Gonna", "indexed_comments": float64(10)},
	}}
	srv := newTestServer(t, svc, Options{})

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	body := html.UnescapeString(string(b))
	assert.Contains(t, body, `<span id="database-exists">true</span>`)
	assert.Contains(t, body, "dQw4w9WgXcQ")
	assert.Contains(t, body, prettyJSON(svc.status.Metadata))

	svc.status = domain.Status{DatabaseExists: true, CurrentVideoID: "x", MetadataError: "unexpected end of JSON input"}
	resp, err = srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	b, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(b), "unexpected end of JSON input")
	assert.NotContains(t, string(b), `id="metadata"`)
}

func TestPanicIsRecovered(t *testing.T) {
	svc := &panicky{}
	srv := httptest.NewServer(NewRouter(svc, nil, Options{}))
	defer srv.Close()

	code, _ := postForm(t, srv.Client(), srv.URL+"/analyze", url.Values{"url": {"x"}})
	assert.Equal(t, http.StatusInternalServerError, code)

	resp, err := srv.Client().Get(srv.URL + "/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPanicIsLogged(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(slog.NewJSONHandler(&buf, nil))
	router := NewRouter(&panicky{}, nil, Options{Logger: lg})
	defer router.Close()

	req := httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader("url=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var access map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] == "http request" {
			access = entry
		}
	}
	require.NotNil(t, access, buf.String())
	assert.Equal(t, "/analyze", access["path"])
	assert.Equal(t, float64(http.StatusInternalServerError), access["status"])
	assert.Equal(t, "ERROR", access["level"])
}

type panicky struct{ fakeComments }

func (p *panicky) AnalyzeYouTubeComments(ctx context.Context, u string) (*domain.AnalysisResult, error) {
	panic("index exploded")
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, body string, header map[string]string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func TestAPIAnalyze(t *testing.T) {
	res := sampleResult()
	svc := &fakeComments{result: res}
	srv := newTestServer(t, svc, Options{})

	code, b := doJSON(t, srv, http.MethodPost, "/api/analyze", `{"url":"https://youtu.be/dQw4w9WgXcQ"}`, nil)
	require.Equal(t, http.StatusOK, code, string(b))
	var got domain.AnalysisResult
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, res.VideoID, got.VideoID)
	assert.Equal(t, res.TopComments, got.TopComments)
	assert.Equal(t, []string{"close", "analyze"}, svc.calls)

	code, _ = doJSON(t, srv, http.MethodPost, "/api/analyze", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPIAnalyzeEmptyURL(t *testing.T) {
	svc := &fakeComments{result: sampleResult()}
	srv := newTestServer(t, svc, Options{})

	for _, body := range []string{`{}`, `{"url":""}`, `{"url":"   "}`} {
		code, b := doJSON(t, srv, http.MethodPost, "/api/analyze", body, nil)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Contains(t, string(b), domain.ErrEmptyURL.Error())
	}
	assert.Empty(t, svc.calls)
}

func TestAPIRateLimit(t *testing.T) {
	router := NewRouter(&fakeComments{}, nil, Options{RateLimit: 1})
	srv := httptest.NewServer(router)
	defer srv.Close()

	code, _ := doJSON(t, srv, http.MethodGet, "/api/status", "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = doJSON(t, srv, http.MethodGet, "/api/status", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)

	// probes are outside /api
	resp, err := srv.Client().Get(srv.URL + "/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	router.Close()
	router.Close()
}

func TestAPIErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{domain.ErrEmptyURL, http.StatusBadRequest},
		{fmt.Errorf("%w: nope", domain.ErrInvalidVideoURL), http.StatusBadRequest},
		{fmt.Errorf("fetching video: %w", domain.ErrVideoNotFound), http.StatusNotFound},
		{fmt.Errorf("fetching comments: %w", domain.ErrYouTubeQuota), http.StatusTooManyRequests},
		{fmt.Errorf("embedding comments: %w", domai.ErrQuotaExceeded), http.StatusTooManyRequests},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			srv := newTestServer(t, &fakeComments{analyzeErr: tt.err}, Options{})
			code, b := doJSON(t, srv, http.MethodPost, "/api/analyze", `{"url":"u"}`, nil)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, string(b), tt.err.Error())
		})
	}
}

func TestAPIAnswer(t *testing.T) {
	ans := &domain.Answer{Answer: "yes", KUsed: 2, ProcessingTime: "0.42 seconds", VideoID: "v"}
	svc := &fakeComments{answer: ans}
	srv := newTestServer(t, svc, Options{})

	code, b := doJSON(t, srv, http.MethodPost, "/api/answer", `{"question":"is it good?","k":2}`, nil)
	require.Equal(t, http.StatusOK, code, string(b))
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "yes", got["answer"])
	assert.Equal(t, float64(2), got["k_used"])
	assert.Equal(t, "0.42 seconds", got["processing_time"])
	require.NotNil(t, svc.gotK)
	assert.Equal(t, 2, *svc.gotK)

	svc.answerErr = domain.ErrNoDatabase
	code, _ = doJSON(t, srv, http.MethodPost, "/api/answer", `{"question":"q"}`, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Nil(t, svc.gotK)
}

func TestAPIStatusAndAuth(t *testing.T) {
	svc := &fakeComments{status: domain.Status{DatabaseExists: true, CurrentVideoID: "v"}}
	srv := newTestServer(t, svc, Options{APIKeys: map[string]string{"cli": "k"}})

	code, _ := doJSON(t, srv, http.MethodGet, "/api/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, b := doJSON(t, srv, http.MethodGet, "/api/status", "", map[string]string{"Authorization": "Bearer k"})
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"database_exists":true,"current_video_id":"v"}`, string(b))

	// the page is not behind the api key
	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIHistory(t *testing.T) {
	repos := memory.NewRepositories()
	ctx := context.Background()
	require.NoError(t, repos.Failures.Save(ctx, &history.Failure{VideoID: "v1", Action: history.ActionAnalyze, Message: "boom"}))
	require.NoError(t, repos.Failures.Save(ctx, &history.Failure{VideoID: "v2", Action: history.ActionAnswer, Message: "bang"}))
	require.NoError(t, repos.Analyses.Save(ctx, &history.Analysis{ID: "a1", VideoID: "v1", Result: "{}"}))

	srv := httptest.NewServer(NewRouter(&fakeComments{}, &apphistory.Service{Repos: repos}, Options{}))
	defer srv.Close()

	code, b := doJSON(t, srv, http.MethodGet, "/api/history/failures?video_id=v2", "", nil)
	require.Equal(t, http.StatusOK, code)
	var failures []history.Failure
	require.NoError(t, json.Unmarshal(b, &failures))
	require.Len(t, failures, 1)
	assert.Equal(t, "bang", failures[0].Message)

	code, b = doJSON(t, srv, http.MethodGet, "/api/history/analyses/v1/latest", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(b), `"id":"a1"`)

	code, _ = doJSON(t, srv, http.MethodGet, "/api/history/analyses/v9/latest", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, b = doJSON(t, srv, http.MethodGet, "/api/history/questions", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(b))
}

func TestProbes(t *testing.T) {
	srv := newTestServer(t, &fakeComments{}, Options{Ready: func() bool { return true }})
	for _, p := range []string{"/health", "/ready", "/live", "/metrics"} {
		resp, err := srv.Client().Get(srv.URL + p)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, p)
	}
}
