package resolver

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/inu9431/qna-archiver/pkg/qna"
)

// DefaultThreshold is the similarity score a candidate must strictly exceed
// to count as a duplicate
const DefaultThreshold = 0.6

// candidateLimit bounds how many index hits are scored per pass
const candidateLimit = 25

// indexedQuestion is the document shape stored in the bleve index
type indexedQuestion struct {
	Question string `json:"question"`
	Verified bool   `json:"verified"`
}

// Resolver finds the best matching prior record for an incoming question.
// A bleve memory index retrieves candidates cheaply; a trigram similarity
// score in [0, 1] decides against the threshold. Resolve is read-only, the
// hit count increment on a duplicate belongs to the pipeline
type Resolver struct {
	mu        sync.RWMutex
	index     bleve.Index
	records   map[uint]*qna.Record
	threshold float64
}

// New creates a resolver with an empty in-memory index
func New(threshold float64) (*Resolver, error) {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultThreshold
	}

	mapping := bleve.NewIndexMapping()
	questionMapping := bleve.NewTextFieldMapping()
	verifiedMapping := bleve.NewBooleanFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("question", questionMapping)
	docMapping.AddFieldMappingsAt("verified", verifiedMapping)
	mapping.AddDocumentMapping("_default", docMapping)

	index, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create similarity index: %w", err)
	}

	return &Resolver{
		index:     index,
		records:   make(map[uint]*qna.Record),
		threshold: threshold,
	}, nil
}

// Threshold returns the configured similarity threshold
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// Seed loads existing records into the index, typically at startup
func (r *Resolver) Seed(records []*qna.Record) error {
	for _, record := range records {
		if err := r.Add(record); err != nil {
			return err
		}
	}
	return nil
}

// Add indexes a record so later questions can match against it
func (r *Resolver) Add(record *qna.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := indexedQuestion{
		Question: record.QuestionText,
		Verified: record.IsVerified,
	}
	if err := r.index.Index(docID(record.ID), doc); err != nil {
		return fmt.Errorf("failed to index record %d: %w", record.ID, err)
	}

	copied := *record
	r.records[record.ID] = &copied
	return nil
}

// SetVerified updates the verification flag of an indexed record
func (r *Resolver) SetVerified(id uint, verified bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return nil
	}
	record.IsVerified = verified

	doc := indexedQuestion{
		Question: record.QuestionText,
		Verified: verified,
	}
	if err := r.index.Index(docID(id), doc); err != nil {
		return fmt.Errorf("failed to reindex record %d: %w", id, err)
	}
	return nil
}

// Remove drops a record from the index
func (r *Resolver) Remove(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, id)
	if err := r.index.Delete(docID(id)); err != nil {
		return fmt.Errorf("failed to remove record %d: %w", id, err)
	}
	return nil
}

// Resolve returns the best matching prior record whose similarity strictly
// exceeds the threshold, or nil when the question is genuinely new.
// Verified records are searched first; only when none qualify does the
// search fall back to the full set
func (r *Resolver) Resolve(ctx context.Context, questionText string) (*qna.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.records) == 0 {
		return nil, nil
	}

	match, err := r.resolvePass(ctx, questionText, true)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return match, nil
	}

	return r.resolvePass(ctx, questionText, false)
}

// resolvePass retrieves candidates for one verification scope and scores them
func (r *Resolver) resolvePass(ctx context.Context, questionText string, verifiedOnly bool) (*qna.Match, error) {
	candidates, err := r.retrieve(ctx, questionText, verifiedOnly)
	if err != nil {
		return nil, err
	}

	var best *qna.Match
	for _, record := range candidates {
		score := Similarity(questionText, record.QuestionText)
		if score <= r.threshold {
			continue
		}
		if best == nil || score > best.Score ||
			(score == best.Score && record.CreatedAt.After(best.Record.CreatedAt)) {
			copied := *record
			best = &qna.Match{Record: &copied, Score: score}
		}
	}

	return best, nil
}

// retrieve collects scoring candidates from the bleve index. When the index
// query yields nothing (e.g. the analyzer produced no terms for the input),
// it degrades to scanning the known records so short or unusual questions
// are still compared
func (r *Resolver) retrieve(ctx context.Context, questionText string, verifiedOnly bool) ([]*qna.Record, error) {
	match := bleve.NewMatchQuery(questionText)
	match.SetField("question")

	var q query.Query = match
	if verifiedOnly {
		verified := bleve.NewBoolFieldQuery(true)
		verified.SetField("verified")
		q = bleve.NewConjunctionQuery(match, verified)
	}

	req := bleve.NewSearchRequestOptions(q, candidateLimit, 0, false)
	result, err := r.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	var candidates []*qna.Record
	for _, hit := range result.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 64)
		if err != nil {
			continue
		}
		if record, ok := r.records[uint(id)]; ok {
			candidates = append(candidates, record)
		}
	}

	if len(candidates) == 0 {
		for _, record := range r.records {
			if verifiedOnly && !record.IsVerified {
				continue
			}
			candidates = append(candidates, record)
		}
	}

	return candidates, nil
}

func docID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
