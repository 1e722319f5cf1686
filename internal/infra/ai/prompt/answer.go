package prompt

import (
    "fmt"
    "strings"

    "github.com/bryanwahyu/comment-analyzer/internal/domain/ai"
)

// GetAnswerSystemPrompt tells the model to answer only from the supplied comments.
func GetAnswerSystemPrompt() string {
    return `You are an assistant that answers questions about a YouTube video using only its viewer comments.

Rules:
- Base the answer strictly on the numbered comments provided. Do not invent facts about the video.
- When comments disagree, say so and summarise each side.
- If the comments do not contain enough information, say that the comments do not answer the question.
- Refer to comments by their number in square brackets, e.g. [2], when quoting or paraphrasing.
- Answer in the language of the question. Keep it concise: a short paragraph or a few bullet points.`
}

// GetAnswerUserPrompt lays out the question followed by the retrieved comments.
func GetAnswerUserPrompt(req ai.AnswerRequest) string {
    var b strings.Builder
    if req.VideoTitle != "" {
        fmt.Fprintf(&b, "Video: %s\n\n", req.VideoTitle)
    }
    fmt.Fprintf(&b, "Question: %s\n\n", strings.TrimSpace(req.Question))
    b.WriteString("Comments:\n")
    writePassages(&b, req.Passages)
    return b.String()
}

func writePassages(b *strings.Builder, passages []ai.Passage) {
    if len(passages) == 0 {
        b.WriteString("(no comments)\n")
        return
    }
    for i, p := range passages {
        author := p.Author
        if author == "" {
            author = "anonymous"
        }
        text := strings.Join(strings.Fields(p.Text), " ")
        fmt.Fprintf(b, "[%d] %s (%d likes): %s\n", i+1, author, p.Likes, text)
    }
}
