package publisher

import (
	"context"
	"errors"
	"net/http"
	"time"

	notionapi "github.com/dstotijn/go-notion"
	"github.com/inu9431/qna-archiver/pkg/qna"
	"github.com/inu9431/qna-archiver/pkg/utils"
)

const (
	// Q&A database column names
	COLUMN_TITLE    = "이름"
	COLUMN_QUESTION = "질문내용"
	COLUMN_ANSWER   = "AI답변"
	COLUMN_CATEGORY = "카테고리"
	COLUMN_HITS     = "질문횟수"
	COLUMN_KEYWORDS = "키워드"

	// Notion field limits; values are truncated before submission so the
	// API does not reject the payload
	TITLE_LIMIT     = 100
	RICH_TEXT_LIMIT = 1990
	KEYWORD_LIMIT   = 50

	requestTimeout = 10 * time.Second
)

// Publisher pushes finalized records to a Notion database and returns the
// created page URL as the publish reference. The at-most-once guard is the
// caller's responsibility; the publisher never checks prior publication
type Publisher struct {
	client     *notionapi.Client
	databaseID string
}

// New creates a publisher from configuration
func New(cfg *utils.Config) (*Publisher, error) {
	token := cfg.Get("NOTION_API_TOKEN")
	if token == "" {
		return nil, errors.New("NOTION_API_TOKEN not set in config or environment")
	}

	databaseID := cfg.Get("NOTION_DATABASE_ID")
	if databaseID == "" {
		return nil, errors.New("NOTION_DATABASE_ID not set in config or environment")
	}

	client := notionapi.NewClient(token, notionapi.WithHTTPClient(&http.Client{
		Timeout: requestTimeout,
	}))

	return NewWithClient(client, databaseID), nil
}

// NewWithClient creates a publisher on an existing Notion client
func NewWithClient(client *notionapi.Client, databaseID string) *Publisher {
	return &Publisher{client: client, databaseID: databaseID}
}

// Publish creates a Notion page for the record and returns its URL
func (p *Publisher) Publish(ctx context.Context, record *qna.Record) (string, error) {
	properties := notionapi.DatabasePageProperties{
		COLUMN_TITLE: notionapi.DatabasePageProperty{
			Title: richText(truncate(orDefault(record.Title, "질문"), TITLE_LIMIT)),
		},
		COLUMN_QUESTION: notionapi.DatabasePageProperty{
			RichText: richText(truncate(orDefault(record.QuestionText, "내용 없음"), RICH_TEXT_LIMIT)),
		},
		COLUMN_ANSWER: notionapi.DatabasePageProperty{
			RichText: richText(truncate(orDefault(record.AnswerText, "답변 대기 중"), RICH_TEXT_LIMIT)),
		},
		COLUMN_CATEGORY: notionapi.DatabasePageProperty{
			Select: &notionapi.SelectOptions{Name: string(record.Category)},
		},
		COLUMN_HITS: notionapi.DatabasePageProperty{
			Number: pointer(float64(record.HitCount)),
		},
	}

	if len(record.Keywords) > 0 {
		options := make([]notionapi.SelectOptions, 0, len(record.Keywords))
		for _, kw := range record.Keywords {
			options = append(options, notionapi.SelectOptions{Name: truncate(kw, KEYWORD_LIMIT)})
		}
		properties[COLUMN_KEYWORDS] = notionapi.DatabasePageProperty{
			MultiSelect: options,
		}
	}

	page, err := p.client.CreatePage(ctx, notionapi.CreatePageParams{
		ParentType:             notionapi.ParentTypeDatabase,
		ParentID:               p.databaseID,
		DatabasePageProperties: &properties,
	})
	if err != nil {
		return "", classify(err)
	}

	return page.URL, nil
}

// classify maps transport and API failures onto the publish error taxonomy
func classify(err error) error {
	var apiErr *notionapi.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			return qna.NewPublishError(qna.PublishAuthFailed, err)
		case apiErr.Status == http.StatusNotFound:
			return qna.NewPublishError(qna.PublishTargetNotFound, err)
		case apiErr.Status == http.StatusBadRequest:
			return qna.NewPublishError(qna.PublishRejected, err)
		default:
			return qna.NewPublishError(qna.PublishTransient, err)
		}
	}

	// Network failures and timeouts are retryable later
	return qna.NewPublishError(qna.PublishTransient, err)
}

// truncate cuts a string to at most limit runes
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.RichTextTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

func pointer[T any](v T) *T {
	return &v
}
