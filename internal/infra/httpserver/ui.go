package httpserver

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	domain "github.com/bryanwahyu/comment-analyzer/internal/domain/comments"
	"github.com/bryanwahyu/comment-analyzer/internal/middleware"
)

// Messages shown by the page actions.
const (
	msgEmptyURL        = "Please enter a YouTube URL."
	msgAnalyzeDone     = "Analysis complete!"
	msgAnalyzeFailed   = "Error during analysis: "
	msgEmptyQuestion   = "Please enter a question."
	msgNoDatabase      = "No comment database found. Please analyze a video first."
	msgAnswerGenerated = "Answer generated!"
	msgAnswerFailed    = "Error while answering: "
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type notice struct {
	Kind string // success | error
	Text string
}

type pageData struct {
	Status       domain.Status
	MetadataJSON string

	URL           string
	AnalyzeNotice *notice
	ResultJSON    string

	Question  string
	K         string // empty means the service default
	DefaultK  int
	AskNotice *notice
	Answer    *domain.Answer
}

// GET /
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) {
	sid := r.sessions.Resolve(w, req)
	data := r.newPage()
	if latest := r.sessions.Latest(sid); latest != nil {
		data.URL = latest.URL
		data.ResultJSON = prettyJSON(latest)
	}
	r.render(w, data)
}

// POST /analyze
func (r *Router) handleAnalyzePage(w http.ResponseWriter, req *http.Request) {
	sid := r.sessions.Resolve(w, req)
	url := req.PostFormValue("url")

	data := pageData{URL: url, DefaultK: r.defaultK}
	switch {
	case strings.TrimSpace(url) == "":
		data.AnalyzeNotice = &notice{Kind: "error", Text: msgEmptyURL}
	default:
		res, err := r.analyze(req, url)
		if err != nil {
			data.AnalyzeNotice = &notice{Kind: "error", Text: msgAnalyzeFailed + err.Error()}
			break
		}
		r.sessions.SetLatest(sid, res)
		data.AnalyzeNotice = &notice{Kind: "success", Text: msgAnalyzeDone}
		data.ResultJSON = prettyJSON(res)
	}

	r.fillStatus(&data)
	r.render(w, data)
}

// POST /ask
func (r *Router) handleAskPage(w http.ResponseWriter, req *http.Request) {
	r.sessions.Resolve(w, req)
	question := req.PostFormValue("question")
	rawK := req.PostFormValue("k")

	data := pageData{Question: question, K: rawK, DefaultK: r.defaultK}
	switch {
	case strings.TrimSpace(question) == "":
		data.AskNotice = &notice{Kind: "error", Text: msgEmptyQuestion}
	case !r.comments.DatabaseExists():
		data.AskNotice = &notice{Kind: "error", Text: msgNoDatabase}
	default:
		ans, err := r.answer(req, question, rawK)
		if err != nil {
			data.AskNotice = &notice{Kind: "error", Text: msgAnswerFailed + err.Error()}
			break
		}
		data.AskNotice = &notice{Kind: "success", Text: msgAnswerGenerated}
		data.Answer = ans
	}

	r.fillStatus(&data)
	r.render(w, data)
}

// analyze tears down the index connection and runs one analysis. It is
// shared by the page and the JSON API.
func (r *Router) analyze(req *http.Request, url string) (*domain.AnalysisResult, error) {
	if strings.TrimSpace(url) == "" {
		return nil, badRequest(domain.ErrEmptyURL)
	}
	if err := middleware.ValidateVideoURL(url); err != nil {
		return nil, badRequest(err)
	}
	done := middleware.AnalysisStarted()
	r.comments.CloseConnection()
	res, err := r.comments.AnalyzeYouTubeComments(req.Context(), url)
	done(err)
	return res, err
}

func (r *Router) answer(req *http.Request, question, rawK string) (*domain.Answer, error) {
	k, err := middleware.ParseK(rawK)
	if err != nil {
		return nil, badRequest(err)
	}
	return r.answerK(req, question, k)
}

func (r *Router) answerK(req *http.Request, question string, k *int) (*domain.Answer, error) {
	question = middleware.SanitizeString(question)
	if err := middleware.ValidateQuestion(question); err != nil {
		return nil, badRequest(err)
	}
	ans, err := r.comments.AnswerQuestion(req.Context(), question, k)
	middleware.QuestionAnswered(err)
	return ans, err
}

func (r *Router) newPage() pageData {
	data := pageData{DefaultK: r.defaultK}
	r.fillStatus(&data)
	return data
}

func (r *Router) fillStatus(data *pageData) {
	data.Status = r.comments.Status()
	if data.Status.Metadata != nil {
		data.MetadataJSON = prettyJSON(data.Status.Metadata)
	}
}

func (r *Router) render(w http.ResponseWriter, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		r.logger.Error("rendering page failed", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// prettyJSON renders v as indented JSON without HTML escaping; the
// template escapes it.
func prettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err.Error()
	}
	return strings.TrimRight(buf.String(), "\n")
}
