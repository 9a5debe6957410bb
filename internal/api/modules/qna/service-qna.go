package qna_module

import (
	"context"
	"log"

	"github.com/inu9431/qna-archiver/internal/archive"
	"github.com/inu9431/qna-archiver/pkg/qna"
)

// Submitter runs a submission through the archive pipeline, typically behind
// a worker pool
type Submitter interface {
	Submit(ctx context.Context, sub archive.Submission) (*archive.Outcome, error)
}

// Archiver exposes the record-level operations of the pipeline
type Archiver interface {
	Verify(ctx context.Context, id uint, verified bool) (*qna.Record, error)
	Publish(ctx context.Context, id uint) (string, error)
}

// RecordLister reads archived records for the listing endpoint
type RecordLister interface {
	ListRecent(ctx context.Context, limit int, verifiedOnly bool) ([]*qna.Record, error)
}

// Dependencies holds the collaborators the qna module runs off of
type Dependencies struct {
	Submitter Submitter
	Archive   Archiver
	Records   RecordLister
}

var deps *Dependencies

// Wire the module's collaborators before registering routes
func Init(d Dependencies) {
	deps = &d
}

// Return the wired dependencies
func getDeps() *Dependencies {
	if deps == nil {
		log.Fatal("[QNA]: Module is not initialized")
	}
	return deps
}
