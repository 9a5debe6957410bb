package archive

import (
	"context"
	"log"
	"strings"
	"time"

	records "github.com/inu9431/qna-archiver/internal/stores/qna"
	"github.com/inu9431/qna-archiver/pkg/qna"
)

const (
	// DefaultGenerateTimeout bounds one full generation (including retries)
	DefaultGenerateTimeout = 120 * time.Second

	// DefaultPublishTimeout bounds one publish attempt
	DefaultPublishTimeout = 15 * time.Second

	// sweepBatchSize bounds how many pending records one sweep pass publishes
	sweepBatchSize = 20
)

// Store is the record persistence the pipeline depends on
type Store interface {
	Create(ctx context.Context, fields records.CreateFields) (*qna.Record, error)
	FindByID(ctx context.Context, id uint) (*qna.Record, error)
	ListUnpublishedVerified(ctx context.Context, limit int) ([]*qna.Record, error)
	IncrementHitCount(ctx context.Context, id uint) error
	SetPublishReference(ctx context.Context, id uint, ref string) (bool, error)
	SetVerified(ctx context.Context, id uint, verified bool) error
}

// Resolver finds the best matching prior record for a question
type Resolver interface {
	Resolve(ctx context.Context, questionText string) (*qna.Match, error)
	Add(record *qna.Record) error
	SetVerified(id uint, verified bool) error
}

// Generator produces a structured answer for a new question
type Generator interface {
	Generate(ctx context.Context, questionText string, image []byte) (*qna.GeneratedAnswer, error)
}

// Publisher pushes a record to the external document store
type Publisher interface {
	Publish(ctx context.Context, record *qna.Record) (string, error)
}

// Notifier announces a stored record that is awaiting verification
type Notifier interface {
	NotifyPendingRecord(ctx context.Context, record *qna.Record) error
}

// Options configures pipeline policy
type Options struct {
	// AutoPublish attempts publication immediately after record creation
	// instead of waiting for verification
	AutoPublish bool

	// Notifier, when set, is told about each new record pending review
	Notifier Notifier

	GenerateTimeout time.Duration
	PublishTimeout  time.Duration
}

// Service sequences resolver, generator, store, and publisher for each
// inbound question. All collaborators are injected once at construction;
// there is no ambient global state
type Service struct {
	store     Store
	resolver  Resolver
	generator Generator
	publisher Publisher
	opts      Options
}

// NewService creates the pipeline with its collaborators
func NewService(store Store, resolver Resolver, generator Generator, publisher Publisher, opts Options) *Service {
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = DefaultGenerateTimeout
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}

	return &Service{
		store:     store,
		resolver:  resolver,
		generator: generator,
		publisher: publisher,
		opts:      opts,
	}
}

// Process runs one submission through the full pipeline:
// validate, resolve, then either increment the duplicate's hit count or
// generate and store a new record, optionally publishing it
func (s *Service) Process(ctx context.Context, sub Submission) (*Outcome, error) {
	if strings.TrimSpace(sub.QuestionText) == "" {
		return nil, qna.NewValidationError("question text cannot be empty")
	}

	match, err := s.resolver.Resolve(ctx, sub.QuestionText)
	if err != nil {
		return nil, err
	}

	if match != nil {
		return s.processDuplicate(ctx, match)
	}

	return s.processNew(ctx, sub)
}

// processDuplicate applies the single hit count increment and reports the
// existing record. No generation, no publication
func (s *Service) processDuplicate(ctx context.Context, match *qna.Match) (*Outcome, error) {
	if err := s.store.IncrementHitCount(ctx, match.Record.ID); err != nil {
		return nil, err
	}

	record, err := s.store.FindByID(ctx, match.Record.ID)
	if err != nil {
		return nil, err
	}

	status := StatusDuplicate
	if record.IsVerified {
		status = StatusVerified
	}

	log.Printf("[ARCHIVE]: duplicate of record %d (score %.2f, hits %d)", record.ID, match.Score, record.HitCount)

	return &Outcome{
		Status:       status,
		RecordID:     record.ID,
		Title:        record.Title,
		AnswerText:   record.AnswerText,
		Keywords:     record.Keywords,
		HitCount:     record.HitCount,
		ReferenceURL: record.PublishReference,
	}, nil
}

// processNew generates an answer, stores the new record, and applies the
// auto-publish policy
func (s *Service) processNew(ctx context.Context, sub Submission) (*Outcome, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.opts.GenerateTimeout)
	defer cancel()

	answer, err := s.generator.Generate(genCtx, sub.QuestionText, sub.Image)
	if err != nil {
		return nil, err
	}

	record, err := s.store.Create(ctx, records.CreateFields{
		QuestionText: sub.QuestionText,
		Title:        answer.Title,
		Category:     answer.Category,
		Keywords:     answer.Keywords,
		AnswerText:   answer.AnswerText,
	})
	if err != nil {
		return nil, err
	}

	if err := s.resolver.Add(record); err != nil {
		// The record is stored; a stale index only affects future matching
		log.Printf("[ARCHIVE]: failed to index record %d: %v", record.ID, err)
	}

	if s.opts.Notifier != nil {
		if err := s.opts.Notifier.NotifyPendingRecord(ctx, record); err != nil {
			log.Printf("[ARCHIVE]: failed to notify for record %d: %v", record.ID, err)
		}
	}

	outcome := &Outcome{
		Status:     StatusNew,
		RecordID:   record.ID,
		Title:      record.Title,
		AnswerText: record.AnswerText,
		Keywords:   record.Keywords,
		HitCount:   record.HitCount,
	}

	if s.opts.AutoPublish {
		ref, err := s.Publish(ctx, record.ID)
		if err != nil && !qna.IsAlreadyPublished(err) {
			// Publication failure never rolls back the stored record
			log.Printf("[ARCHIVE]: record %d stored but not published: %v", record.ID, err)
			outcome.PublishFailed = true
		} else {
			outcome.ReferenceURL = ref
		}
	}

	log.Printf("[ARCHIVE]: created record %d (category %s)", record.ID, record.Category)
	return outcome, nil
}

// Publish pushes one record to the document store with at-most-once
// semantics. A record that already has a reference is never re-submitted;
// losing the reference compare-and-set race is also reported as
// AlreadyPublished rather than an error
func (s *Service) Publish(ctx context.Context, id uint) (string, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	if record.Published() {
		return record.PublishReference, qna.ErrAlreadyPublished
	}

	pubCtx, cancel := context.WithTimeout(ctx, s.opts.PublishTimeout)
	defer cancel()

	ref, err := s.publisher.Publish(pubCtx, record)
	if err != nil {
		return "", err
	}

	ok, err := s.store.SetPublishReference(ctx, id, ref)
	if err != nil {
		return "", err
	}
	if !ok {
		// A concurrent publish won the compare-and-set; its reference stands
		current, err := s.store.FindByID(ctx, id)
		if err != nil {
			return "", err
		}
		log.Printf("[ARCHIVE]: record %d published concurrently, keeping %s", id, current.PublishReference)
		return current.PublishReference, qna.ErrAlreadyPublished
	}

	log.Printf("[ARCHIVE]: published record %d -> %s", id, ref)
	return ref, nil
}

// Verify marks a record's verification status and, when verifying, attempts
// publication through the at-most-once guard. Publish failures are logged
// and left to the sweep; the verification itself stands
func (s *Service) Verify(ctx context.Context, id uint, verified bool) (*qna.Record, error) {
	if err := s.store.SetVerified(ctx, id, verified); err != nil {
		return nil, err
	}

	if err := s.resolver.SetVerified(id, verified); err != nil {
		log.Printf("[ARCHIVE]: failed to update index verification for record %d: %v", id, err)
	}

	if verified {
		if _, err := s.Publish(ctx, id); err != nil && !qna.IsAlreadyPublished(err) {
			log.Printf("[ARCHIVE]: record %d verified but not published: %v", id, err)
		}
	}

	return s.store.FindByID(ctx, id)
}

// Sweep publishes pending verified records in one batch. Individual publish
// failures are logged and retried on the next pass
func (s *Service) Sweep(ctx context.Context) (int, error) {
	pending, err := s.store.ListUnpublishedVerified(ctx, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, record := range pending {
		if _, err := s.Publish(ctx, record.ID); err != nil {
			if qna.IsAlreadyPublished(err) {
				continue
			}
			log.Printf("[SWEEP]: failed to publish record %d: %v", record.ID, err)
			continue
		}
		published++
	}

	return published, nil
}
