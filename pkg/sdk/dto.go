package sdk

import (
	"encoding/json"
	"time"
)

// StatusType marks the outcome class of an API response
type StatusType string

const (
	StatusSuccess StatusType = "success"
	StatusFail    StatusType = "fail"
	StatusError   StatusType = "error"
)

// ApiResponse represents a standard API response structure
type ApiResponse[T any] struct {
	Status  StatusType `json:"status"`          // Status message
	Code    int        `json:"code"`            // Status code
	Message string     `json:"message"`         // Human-readable message
	Data    T          `json:"data,omitempty"`  // Optional data field for successful responses
	Error   any        `json:"error,omitempty"` // Optional errors field for error responses
}

// AsGinResponse converts the ApiResponse to a format suitable for Gin framework
func (r ApiResponse[T]) AsGinResponse() (int, any) {
	return r.Code, r
}

// AsJSON converts the ApiResponse to a format suitable for JSON responses
func (r ApiResponse[T]) AsJSON() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func NewSuccessResponse[T any](message string, data T) ApiResponse[T] {
	return ApiResponse[T]{
		Status:  StatusSuccess,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(code int, message string, err any) ApiResponse[any] {
	resp := ApiResponse[any]{
		Status:  StatusError,
		Code:    code,
		Message: message,
	}

	// Raw error values do not marshal to anything useful
	switch e := err.(type) {
	case nil:
	case error:
		resp.Error = e.Error()
	default:
		resp.Error = e
	}

	return resp
}

/** Requests */

// SubmitQuestionRequest represents the request body for submitting a question
type SubmitQuestionRequest struct {
	QuestionText string `json:"question_text" binding:"required"`
	ImageBase64  string `json:"image_base64,omitempty"` // Optional screenshot, standard base64
}

// VerifyRequest represents the request body for changing verification status
type VerifyRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

/** Responses */

// Submission outcome statuses
const (
	OutcomeNew       = "new"
	OutcomeDuplicate = "duplicate"
	OutcomeVerified  = "verified"
)

// SubmitQuestionResponse represents the result of submitting a question
type SubmitQuestionResponse struct {
	Status        string   `json:"status"` // One of "new", "duplicate", "verified"
	RecordID      uint     `json:"record_id"`
	Title         string   `json:"title"`
	AnswerText    string   `json:"answer_text"`
	Keywords      []string `json:"keywords,omitempty"`
	HitCount      int      `json:"hit_count"`
	ReferenceURL  string   `json:"reference_url,omitempty"`
	PublishFailed bool     `json:"publish_failed,omitempty"`
}

// Record represents an archived question and answer
type Record struct {
	ID           uint      `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	QuestionText string    `json:"question_text"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	Keywords     []string  `json:"keywords,omitempty"`
	AnswerText   string    `json:"answer_text"`
	HitCount     int       `json:"hit_count"`
	IsVerified   bool      `json:"is_verified"`
	ReferenceURL string    `json:"reference_url,omitempty"`
}

// ListRecordsResponse represents the response for listing archived records
type ListRecordsResponse struct {
	Records []Record `json:"records"`
	Count   int      `json:"count"`
}

// PublishResponse represents the result of a publish request
type PublishResponse struct {
	ReferenceURL     string `json:"reference_url"`
	AlreadyPublished bool   `json:"already_published"`
}
