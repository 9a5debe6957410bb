package qna_module

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inu9431/qna-archiver/internal/archive"
	records "github.com/inu9431/qna-archiver/internal/stores/qna"
	"github.com/inu9431/qna-archiver/pkg/qna"
	"github.com/inu9431/qna-archiver/pkg/sdk"
)

const defaultListLimit = 20

// SubmitQuestion handles POST requests to run a question through the pipeline
func SubmitQuestion(c *gin.Context) {
	// Parse request body
	var req sdk.SubmitQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	// Decode the optional screenshot
	var image []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not decode image", err).AsGinResponse())
			return
		}
		image = decoded
	}

	// Run the submission through the worker pool and wait for the outcome
	outcome, err := getDeps().Submitter.Submit(c.Request.Context(), archive.Submission{
		QuestionText: req.QuestionText,
		Image:        image,
	})
	if err != nil {
		var valErr *qna.ValidationError
		if errors.As(err, &valErr) {
			c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid question", err).AsGinResponse())
			return
		}
		c.JSON(sdk.NewErrorResponse(http.StatusBadGateway, "Failed to process question", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Question processed successfully", toSDKOutcome(outcome)).AsGinResponse())
}

// ListRecords handles GET requests to list archived records
func ListRecords(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid limit parameter", err).AsGinResponse())
			return
		}
		limit = parsed
	}
	verifiedOnly := c.Query("verified") == "true"

	list, err := getDeps().Records.ListRecent(c.Request.Context(), limit, verifiedOnly)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to list records", err).AsGinResponse())
		return
	}

	resp := sdk.ListRecordsResponse{Records: make([]sdk.Record, 0, len(list))}
	for _, record := range list {
		resp.Records = append(resp.Records, toSDKRecord(record))
	}
	resp.Count = len(resp.Records)

	c.JSON(sdk.NewSuccessResponse("Records retrieved successfully", resp).AsGinResponse())
}

// VerifyRecord handles POST requests to change a record's verification status
func VerifyRecord(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	// Parse request body
	var req sdk.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Could not parse request body", err).AsGinResponse())
		return
	}

	record, err := getDeps().Archive.Verify(c.Request.Context(), id, *req.Verified)
	if err != nil {
		if errors.Is(err, records.ErrRecordNotFound) {
			c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Record not found", err).AsGinResponse())
			return
		}
		c.JSON(sdk.NewErrorResponse(http.StatusInternalServerError, "Failed to update record", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Record updated successfully", toSDKRecord(record)).AsGinResponse())
}

// PublishRecord handles POST requests to push a record to the document board
func PublishRecord(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ref, err := getDeps().Archive.Publish(c.Request.Context(), id)
	if err != nil {
		// An existing reference is reported as success; the record is on
		// the board either way
		if qna.IsAlreadyPublished(err) {
			resp := sdk.PublishResponse{ReferenceURL: ref, AlreadyPublished: true}
			c.JSON(sdk.NewSuccessResponse("Record already published", resp).AsGinResponse())
			return
		}
		if errors.Is(err, records.ErrRecordNotFound) {
			c.JSON(sdk.NewErrorResponse(http.StatusNotFound, "Record not found", err).AsGinResponse())
			return
		}
		c.JSON(sdk.NewErrorResponse(http.StatusBadGateway, "Failed to publish record", err).AsGinResponse())
		return
	}

	c.JSON(sdk.NewSuccessResponse("Record published successfully", sdk.PublishResponse{ReferenceURL: ref}).AsGinResponse())
}

// Helper method to parse the record id path parameter
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(sdk.NewErrorResponse(http.StatusBadRequest, "Invalid record id", err).AsGinResponse())
		return 0, false
	}
	return uint(id), true
}

// Helper method to convert a pipeline outcome to its sdk form
func toSDKOutcome(outcome *archive.Outcome) sdk.SubmitQuestionResponse {
	status := sdk.OutcomeNew
	switch outcome.Status {
	case archive.StatusDuplicate:
		status = sdk.OutcomeDuplicate
	case archive.StatusVerified:
		status = sdk.OutcomeVerified
	}

	return sdk.SubmitQuestionResponse{
		Status:        status,
		RecordID:      outcome.RecordID,
		Title:         outcome.Title,
		AnswerText:    outcome.AnswerText,
		Keywords:      outcome.Keywords,
		HitCount:      outcome.HitCount,
		ReferenceURL:  outcome.ReferenceURL,
		PublishFailed: outcome.PublishFailed,
	}
}

// Helper method to convert an internal record to its sdk form
func toSDKRecord(record *qna.Record) sdk.Record {
	return sdk.Record{
		ID:           record.ID,
		CreatedAt:    record.CreatedAt,
		QuestionText: record.QuestionText,
		Title:        record.Title,
		Category:     string(record.Category),
		Keywords:     record.Keywords,
		AnswerText:   record.AnswerText,
		HitCount:     record.HitCount,
		IsVerified:   record.IsVerified,
		ReferenceURL: record.PublishReference,
	}
}
