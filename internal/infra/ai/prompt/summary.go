package prompt

import (
    "fmt"
    "strings"

    "github.com/bryanwahyu/comment-analyzer/internal/domain/ai"
)

// GetSummarySystemPrompt asks for an overview of audience reaction.
func GetSummarySystemPrompt() string {
    return `You summarise how the audience reacted to a YouTube video, based on a sample of its most liked comments.

Write plain text, no markdown headings. Cover the overall sentiment, the recurring topics or questions, and any notable disagreement. Keep it under 150 words.`
}

func GetSummaryUserPrompt(req ai.SummaryRequest) string {
    var b strings.Builder
    fmt.Fprintf(&b, "Video: %s\n", orUnknown(req.VideoTitle))
    fmt.Fprintf(&b, "Channel: %s\n\n", orUnknown(req.Channel))
    b.WriteString("Comments:\n")
    writePassages(&b, req.Passages)
    return b.String()
}

func orUnknown(s string) string {
    if strings.TrimSpace(s) == "" {
        return "unknown"
    }
    return s
}
