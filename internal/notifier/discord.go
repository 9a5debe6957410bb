// Package notifier announces newly archived records to a Discord webhook so
// admins know an answer is waiting for review.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inu9431/qna-archiver/pkg/qna"
)

const (
	requestTimeout = 10 * time.Second

	// Discord caps webhook messages at 2000 characters; leave room for framing
	answerLimit = 1500
)

// Webhook posts record notifications to a Discord webhook URL
type Webhook struct {
	url        string
	httpClient *http.Client
}

func New(webhookURL string) *Webhook {
	return NewWithClient(webhookURL, &http.Client{Timeout: requestTimeout})
}

func NewWithClient(webhookURL string, httpClient *http.Client) *Webhook {
	return &Webhook{
		url:        webhookURL,
		httpClient: httpClient,
	}
}

// webhookPayload is the Discord webhook message body
type webhookPayload struct {
	Content string `json:"content"`
}

// NotifyPendingRecord announces a stored record that is awaiting verification
func (w *Webhook) NotifyPendingRecord(ctx context.Context, record *qna.Record) error {
	content := fmt.Sprintf("**AI 분석 완료 (ID: %d)**\n\n%s\n\n검증 대기중입니다. 어드민에서 확인해주세요.",
		record.ID, truncate(record.AnswerText, answerLimit))

	jsonData, err := json.Marshal(webhookPayload{Content: content})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// truncate shortens s to at most limit runes
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
