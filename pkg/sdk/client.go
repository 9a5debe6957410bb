package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps calls to the archiver backend
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 180 * time.Second},
	}
}

// SubmitQuestion sends a question through the archive pipeline and blocks
// until an answer is available
func (c *Client) SubmitQuestion(ctx context.Context, req *SubmitQuestionRequest) (*SubmitQuestionResponse, error) {
	path := "/api/qna"

	var out ApiResponse[SubmitQuestionResponse]
	if err := c.doJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}

	// Check for success
	switch out.Status {
	case StatusFail:
		return nil, fmt.Errorf("failed to submit question: %s", out.Message)
	case StatusError:
		return nil, fmt.Errorf("error submitting question (%s): %v", out.Message, out.Error)
	}

	return &out.Data, nil
}

// ListRecords fetches recently archived records
func (c *Client) ListRecords(ctx context.Context, limit int, verifiedOnly bool) (*ListRecordsResponse, error) {
	path := fmt.Sprintf("/api/qna?limit=%d&verified=%t", limit, verifiedOnly)

	var out ApiResponse[ListRecordsResponse]
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// Verify sets the verification status of a record
func (c *Client) Verify(ctx context.Context, id uint, verified bool) (*Record, error) {
	path := fmt.Sprintf("/api/qna/%d/verify", id)

	var out ApiResponse[Record]
	if err := c.doJSON(ctx, http.MethodPost, path, &VerifyRequest{Verified: &verified}, &out); err != nil {
		return nil, err
	}

	return &out.Data, nil
}

// Publish pushes a record to the document board
func (c *Client) Publish(ctx context.Context, id uint) (*PublishResponse, error) {
	path := fmt.Sprintf("/api/qna/%d/publish", id)

	var out ApiResponse[PublishResponse]
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}

	if out.Data.ReferenceURL == "" {
		return nil, fmt.Errorf("no reference returned")
	}

	return &out.Data, nil
}

// doJSON is a helper to perform JSON requests to the backend
func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any) error {
	// Create request body if input is provided
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	}

	// Create the request
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	// Perform the request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// On error, read body and return error
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("[BACKEND]: backend '%s %s' failed: %d: %s", method, path, resp.StatusCode, string(b))
	}

	// If no output expected, return early
	if out == nil {
		return nil
	}

	// Decode the response body into the output struct
	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}
