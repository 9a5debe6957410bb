package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	records "github.com/inu9431/qna-archiver/internal/stores/qna"
	"github.com/inu9431/qna-archiver/pkg/qna"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/** Fakes */

// fakeStore is an in-memory Store with compare-and-set semantics matching
// the real implementation
type fakeStore struct {
	nextID  uint
	records map[uint]*qna.Record

	// when set, the CAS loses to this reference as if a concurrent
	// publisher landed between the read and the write
	concurrentRef string
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, records: make(map[uint]*qna.Record)}
}

func (s *fakeStore) Create(ctx context.Context, fields records.CreateFields) (*qna.Record, error) {
	record := &qna.Record{
		ID:           s.nextID,
		QuestionText: fields.QuestionText,
		Title:        fields.Title,
		Category:     fields.Category,
		Keywords:     fields.Keywords,
		AnswerText:   fields.AnswerText,
		HitCount:     1,
		CreatedAt:    time.Now(),
	}
	s.records[record.ID] = record
	s.nextID++
	copied := *record
	return &copied, nil
}

func (s *fakeStore) FindByID(ctx context.Context, id uint) (*qna.Record, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, records.ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *fakeStore) ListUnpublishedVerified(ctx context.Context, limit int) ([]*qna.Record, error) {
	var out []*qna.Record
	for _, record := range s.records {
		if record.IsVerified && !record.Published() {
			copied := *record
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) IncrementHitCount(ctx context.Context, id uint) error {
	record, ok := s.records[id]
	if !ok {
		return records.ErrRecordNotFound
	}
	record.HitCount++
	return nil
}

func (s *fakeStore) SetPublishReference(ctx context.Context, id uint, ref string) (bool, error) {
	record, ok := s.records[id]
	if !ok {
		return false, records.ErrRecordNotFound
	}
	if s.concurrentRef != "" {
		record.PublishReference = s.concurrentRef
		return false, nil
	}
	if record.PublishReference != "" {
		return false, nil
	}
	record.PublishReference = ref
	return true, nil
}

func (s *fakeStore) SetVerified(ctx context.Context, id uint, verified bool) error {
	record, ok := s.records[id]
	if !ok {
		return records.ErrRecordNotFound
	}
	record.IsVerified = verified
	return nil
}

// fakeResolver returns a scripted match and counts calls
type fakeResolver struct {
	match *qna.Match
	calls int
	added []*qna.Record
}

func (r *fakeResolver) Resolve(ctx context.Context, questionText string) (*qna.Match, error) {
	r.calls++
	return r.match, nil
}

func (r *fakeResolver) Add(record *qna.Record) error {
	r.added = append(r.added, record)
	return nil
}

func (r *fakeResolver) SetVerified(id uint, verified bool) error { return nil }

// fakeGenerator returns a scripted answer and counts calls
type fakeGenerator struct {
	answer *qna.GeneratedAnswer
	err    error
	calls  int
}

func (g *fakeGenerator) Generate(ctx context.Context, questionText string, image []byte) (*qna.GeneratedAnswer, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.answer, nil
}

// fakePublisher returns a scripted reference and counts calls
type fakePublisher struct {
	ref   string
	err   error
	calls int
}

func (p *fakePublisher) Publish(ctx context.Context, record *qna.Record) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.ref, nil
}

// fakeNotifier records which records it was told about
type fakeNotifier struct {
	err      error
	notified []uint
}

func (n *fakeNotifier) NotifyPendingRecord(ctx context.Context, record *qna.Record) error {
	n.notified = append(n.notified, record.ID)
	return n.err
}

func defaultAnswer() *qna.GeneratedAnswer {
	return &qna.GeneratedAnswer{
		Title:      "ORM 최적화",
		Category:   qna.CategoryDjango,
		Keywords:   []string{"ORM", "N+1"},
		AnswerText: "select_related를 사용하세요",
	}
}

func newTestService(store *fakeStore, resolver *fakeResolver, generator *fakeGenerator, publisher *fakePublisher, opts Options) *Service {
	return NewService(store, resolver, generator, publisher, opts)
}

/** Tests */

func TestProcess_EmptyQuestionIsRejectedBeforeAnyCall(t *testing.T) {
	resolver := &fakeResolver{}
	generator := &fakeGenerator{answer: defaultAnswer()}
	service := newTestService(newFakeStore(), resolver, generator, &fakePublisher{}, Options{})

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := service.Process(context.Background(), Submission{QuestionText: text})

		var valErr *qna.ValidationError
		require.ErrorAs(t, err, &valErr)
	}

	assert.Zero(t, resolver.calls, "resolver must not be called for invalid input")
	assert.Zero(t, generator.calls, "generator must not be called for invalid input")
}

func TestProcess_NewQuestionCreatesRecord(t *testing.T) {
	store := newFakeStore()
	resolver := &fakeResolver{}
	generator := &fakeGenerator{answer: defaultAnswer()}
	publisher := &fakePublisher{ref: "https://notion.so/page-1"}
	service := newTestService(store, resolver, generator, publisher, Options{})

	outcome, err := service.Process(context.Background(), Submission{QuestionText: "Django ORM N+1 문제"})
	require.NoError(t, err)

	assert.Equal(t, StatusNew, outcome.Status)
	assert.Equal(t, 1, outcome.HitCount)
	assert.Equal(t, "select_related를 사용하세요", outcome.AnswerText)
	assert.Empty(t, outcome.ReferenceURL, "auto-publish is off by default")
	assert.Zero(t, publisher.calls)

	record, err := store.FindByID(context.Background(), outcome.RecordID)
	require.NoError(t, err)
	assert.Equal(t, qna.CategoryDjango, record.Category)
	assert.False(t, record.IsVerified)
	assert.False(t, record.Published())

	require.Len(t, resolver.added, 1, "new record must be indexed for future matching")
}

func TestProcess_DuplicateIncrementsHitCountOnly(t *testing.T) {
	store := newFakeStore()
	existing, err := store.Create(context.Background(), records.CreateFields{
		QuestionText: "Django ORM N+1 문제",
		Title:        "ORM 최적화",
		AnswerText:   "답변",
	})
	require.NoError(t, err)

	resolver := &fakeResolver{match: &qna.Match{Record: existing, Score: 0.95}}
	generator := &fakeGenerator{answer: defaultAnswer()}
	publisher := &fakePublisher{ref: "https://notion.so/page-1"}
	service := newTestService(store, resolver, generator, publisher, Options{AutoPublish: true})

	outcome, err := service.Process(context.Background(), Submission{QuestionText: "Django ORM N+1 문제"})
	require.NoError(t, err)

	assert.Equal(t, StatusDuplicate, outcome.Status)
	assert.Equal(t, existing.ID, outcome.RecordID)
	assert.Equal(t, 2, outcome.HitCount)
	assert.Zero(t, generator.calls, "duplicates skip generation")
	assert.Zero(t, publisher.calls, "duplicates skip publication")
	assert.Len(t, store.records, 1, "no new record is created")
}

func TestProcess_VerifiedDuplicateReportsReference(t *testing.T) {
	store := newFakeStore()
	existing, err := store.Create(context.Background(), records.CreateFields{QuestionText: "q", AnswerText: "a"})
	require.NoError(t, err)
	require.NoError(t, store.SetVerified(context.Background(), existing.ID, true))
	_, err = store.SetPublishReference(context.Background(), existing.ID, "https://notion.so/page-1")
	require.NoError(t, err)

	resolver := &fakeResolver{match: &qna.Match{Record: existing, Score: 0.9}}
	service := newTestService(store, resolver, &fakeGenerator{}, &fakePublisher{}, Options{})

	outcome, err := service.Process(context.Background(), Submission{QuestionText: "q"})
	require.NoError(t, err)

	assert.Equal(t, StatusVerified, outcome.Status)
	assert.Equal(t, "https://notion.so/page-1", outcome.ReferenceURL)
}

func TestProcess_GenerationErrorCreatesNoRecord(t *testing.T) {
	store := newFakeStore()
	generator := &fakeGenerator{err: qna.NewGenerationError(qna.GenerationParsingFailed, errors.New("no body"))}
	service := newTestService(store, &fakeResolver{}, generator, &fakePublisher{}, Options{})

	_, err := service.Process(context.Background(), Submission{QuestionText: "질문"})

	var genErr *qna.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Empty(t, store.records)
}

func TestProcess_AutoPublishSetsReference(t *testing.T) {
	store := newFakeStore()
	publisher := &fakePublisher{ref: "https://notion.so/page-1"}
	service := newTestService(store, &fakeResolver{}, &fakeGenerator{answer: defaultAnswer()}, publisher, Options{AutoPublish: true})

	outcome, err := service.Process(context.Background(), Submission{QuestionText: "질문"})
	require.NoError(t, err)

	assert.Equal(t, StatusNew, outcome.Status)
	assert.Equal(t, "https://notion.so/page-1", outcome.ReferenceURL)
	assert.False(t, outcome.PublishFailed)
	assert.Equal(t, 1, publisher.calls)
}

func TestProcess_PublishFailureDoesNotFailSubmission(t *testing.T) {
	store := newFakeStore()
	publisher := &fakePublisher{err: qna.NewPublishError(qna.PublishRejected, errors.New("payload too long"))}
	service := newTestService(store, &fakeResolver{}, &fakeGenerator{answer: defaultAnswer()}, publisher, Options{AutoPublish: true})

	outcome, err := service.Process(context.Background(), Submission{QuestionText: "질문"})
	require.NoError(t, err, "generation success must not be undone by publication failure")

	assert.Equal(t, StatusNew, outcome.Status)
	assert.True(t, outcome.PublishFailed)
	assert.NotEmpty(t, outcome.AnswerText)

	record, err := store.FindByID(context.Background(), outcome.RecordID)
	require.NoError(t, err)
	assert.False(t, record.Published())
}

func TestProcess_NewRecordTriggersPendingNotification(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	service := newTestService(store, &fakeResolver{}, &fakeGenerator{answer: defaultAnswer()}, &fakePublisher{}, Options{Notifier: notifier})

	outcome, err := service.Process(context.Background(), Submission{QuestionText: "질문"})
	require.NoError(t, err)

	assert.Equal(t, []uint{outcome.RecordID}, notifier.notified)
}

func TestProcess_DuplicateDoesNotNotify(t *testing.T) {
	store := newFakeStore()
	existing, err := store.Create(context.Background(), records.CreateFields{QuestionText: "q", AnswerText: "a"})
	require.NoError(t, err)

	notifier := &fakeNotifier{}
	resolver := &fakeResolver{match: &qna.Match{Record: existing, Score: 0.9}}
	service := newTestService(store, resolver, &fakeGenerator{}, &fakePublisher{}, Options{Notifier: notifier})

	_, err = service.Process(context.Background(), Submission{QuestionText: "q"})
	require.NoError(t, err)

	assert.Empty(t, notifier.notified, "duplicates are not pending review")
}

func TestProcess_NotificationFailureDoesNotFailSubmission(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{err: errors.New("webhook unreachable")}
	service := newTestService(store, &fakeResolver{}, &fakeGenerator{answer: defaultAnswer()}, &fakePublisher{}, Options{Notifier: notifier})

	outcome, err := service.Process(context.Background(), Submission{QuestionText: "질문"})
	require.NoError(t, err)

	assert.Equal(t, StatusNew, outcome.Status)
	assert.Len(t, store.records, 1)
}

func TestPublish_AtMostOnce(t *testing.T) {
	store := newFakeStore()
	record, err := store.Create(context.Background(), records.CreateFields{QuestionText: "q", AnswerText: "a"})
	require.NoError(t, err)

	publisher := &fakePublisher{ref: "https://notion.so/page-1"}
	service := newTestService(store, &fakeResolver{}, &fakeGenerator{}, publisher, Options{})

	ref, err := service.Publish(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://notion.so/page-1", ref)
	assert.Equal(t, 1, publisher.calls)

	// Second call observes the existing reference and makes no external call
	ref, err = service.Publish(context.Background(), record.ID)
	assert.True(t, qna.IsAlreadyPublished(err))
	assert.Equal(t, "https://notion.so/page-1", ref)
	assert.Equal(t, 1, publisher.calls)
}

func TestPublish_LosingTheRaceIsAlreadyPublished(t *testing.T) {
	store := newFakeStore()
	record, err := store.Create(context.Background(), records.CreateFields{QuestionText: "q", AnswerText: "a"})
	require.NoError(t, err)

	// A concurrent publish wins between the read and the compare-and-set
	store.concurrentRef = "https://notion.so/page-1"

	publisher := &fakePublisher{ref: "https://notion.so/page-2"}
	service := newTestService(store, &fakeResolver{}, &fakeGenerator{}, publisher, Options{})

	ref, err := service.Publish(context.Background(), record.ID)

	assert.True(t, qna.IsAlreadyPublished(err))
	assert.Equal(t, "https://notion.so/page-1", ref, "the winner's reference stands")
	assert.Equal(t, 1, publisher.calls)
}

func TestVerify_TriggersPublication(t *testing.T) {
	store := newFakeStore()
	record, err := store.Create(context.Background(), records.CreateFields{QuestionText: "q", AnswerText: "a"})
	require.NoError(t, err)

	publisher := &fakePublisher{ref: "https://notion.so/page-1"}
	service := newTestService(store, &fakeResolver{}, &fakeGenerator{}, publisher, Options{})

	verified, err := service.Verify(context.Background(), record.ID, true)
	require.NoError(t, err)

	assert.True(t, verified.IsVerified)
	assert.Equal(t, "https://notion.so/page-1", verified.PublishReference)
	assert.Equal(t, 1, publisher.calls)
}

func TestVerify_PublishFailureKeepsVerification(t *testing.T) {
	store := newFakeStore()
	record, err := store.Create(context.Background(), records.CreateFields{QuestionText: "q", AnswerText: "a"})
	require.NoError(t, err)

	publisher := &fakePublisher{err: qna.NewPublishError(qna.PublishTransient, errors.New("timeout"))}
	service := newTestService(store, &fakeResolver{}, &fakeGenerator{}, publisher, Options{})

	verified, err := service.Verify(context.Background(), record.ID, true)
	require.NoError(t, err)

	assert.True(t, verified.IsVerified)
	assert.False(t, verified.Published())
}

func TestSweep_PublishesPendingVerifiedRecords(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	pending, err := store.Create(ctx, records.CreateFields{QuestionText: "pending", AnswerText: "a"})
	require.NoError(t, err)
	require.NoError(t, store.SetVerified(ctx, pending.ID, true))

	done, err := store.Create(ctx, records.CreateFields{QuestionText: "done", AnswerText: "a"})
	require.NoError(t, err)
	require.NoError(t, store.SetVerified(ctx, done.ID, true))
	_, err = store.SetPublishReference(ctx, done.ID, "https://notion.so/done")
	require.NoError(t, err)

	_, err = store.Create(ctx, records.CreateFields{QuestionText: "unverified", AnswerText: "a"})
	require.NoError(t, err)

	publisher := &fakePublisher{ref: "https://notion.so/page-1"}
	service := newTestService(store, &fakeResolver{}, &fakeGenerator{}, publisher, Options{})

	published, err := service.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, published)
	assert.Equal(t, 1, publisher.calls)

	record, err := store.FindByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.True(t, record.Published())
}
