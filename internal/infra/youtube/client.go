package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	domain "github.com/bryanwahyu/comment-analyzer/internal/domain/comments"
)

// pageSize is the maximum the commentThreads endpoint allows.
const pageSize = 100

type Options struct {
	Order          string // relevance | time
	IncludeReplies bool
}

// Client wraps the YouTube Data API service
type Client struct {
	service *yt.Service
	opts    Options
}

// NewClient creates a YouTube API client. Extra options are passed to the
// underlying service (tests point it at a local server).
func NewClient(ctx context.Context, apiKey string, opts Options, extra ...option.ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing youtube api key")
	}
	if opts.Order == "" {
		opts.Order = "relevance"
	}
	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, extra...)
	service, err := yt.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating youtube service: %w", err)
	}
	return &Client{service: service, opts: opts}, nil
}

func (c *Client) Video(ctx context.Context, videoID string) (*domain.Video, error) {
	resp, err := c.service.Videos.List([]string{"snippet", "statistics"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapError(err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrVideoNotFound, videoID)
	}

	v := resp.Items[0]
	out := &domain.Video{ID: v.Id}
	if v.Snippet != nil {
		out.Title = v.Snippet.Title
		out.Channel = v.Snippet.ChannelTitle
		out.Description = v.Snippet.Description
		out.PublishedAt = parseTime(v.Snippet.PublishedAt)
	}
	if v.Statistics != nil {
		out.Views = v.Statistics.ViewCount
		out.Likes = v.Statistics.LikeCount
		out.CommentCount = v.Statistics.CommentCount
	}
	return out, nil
}

// Comments pages through the comment threads of a video until limit
// comments were collected or there are no more pages.
func (c *Client) Comments(ctx context.Context, videoID string, limit int) ([]domain.Comment, error) {
	parts := []string{"snippet"}
	if c.opts.IncludeReplies {
		parts = append(parts, "replies")
	}
	call := c.service.CommentThreads.List(parts).
		VideoId(videoID).
		MaxResults(pageSize).
		TextFormat("plainText").
		Order(c.opts.Order)

	var out []domain.Comment
	for limit <= 0 || len(out) < limit {
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, mapError(err)
		}
		for _, th := range resp.Items {
			if th.Snippet == nil || th.Snippet.TopLevelComment == nil {
				continue
			}
			out = append(out, toComment(th.Snippet.TopLevelComment))
			if c.opts.IncludeReplies && th.Replies != nil {
				for _, r := range th.Replies.Comments {
					out = append(out, toComment(r))
				}
			}
		}
		if resp.NextPageToken == "" {
			break
		}
		call.PageToken(resp.NextPageToken)
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func toComment(c *yt.Comment) domain.Comment {
	out := domain.Comment{ID: c.Id}
	if s := c.Snippet; s != nil {
		out.Author = s.AuthorDisplayName
		out.Text = s.TextOriginal
		if out.Text == "" {
			out.Text = s.TextDisplay
		}
		out.Likes = s.LikeCount
		out.PublishedAt = parseTime(s.PublishedAt)
		out.ParentID = s.ParentId
	}
	return out
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// mapError translates API errors into domain errors where one fits.
func mapError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "commentsDisabled":
			return fmt.Errorf("%w: comments are disabled", domain.ErrNoComments)
		case "videoNotFound":
			return fmt.Errorf("%w: %s", domain.ErrVideoNotFound, gerr.Message)
		case "quotaExceeded", "rateLimitExceeded", "dailyLimitExceeded":
			return fmt.Errorf("%w: %s", domain.ErrYouTubeQuota, gerr.Message)
		}
	}
	switch gerr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrVideoNotFound, gerr.Message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrYouTubeQuota, gerr.Message)
	}
	return err
}
