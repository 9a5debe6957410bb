package qna

import "time"

// DefaultTitle is the placeholder used when the generator returns no title
const DefaultTitle = "신규 질문"

// Record is a persisted Q&A entry
type Record struct {
	ID           uint
	QuestionText string
	Title        string
	Category     Category
	Keywords     []string
	AnswerText   string
	HitCount     int
	IsVerified   bool

	// PublishReference is the page URL returned by the document store
	// Empty means not yet published; once set it is never overwritten
	PublishReference string

	CreatedAt time.Time
}

// Published reports whether the record already has a publish reference
func (r *Record) Published() bool {
	return r.PublishReference != ""
}

// GeneratedAnswer holds the structured fields produced by the answer generator
type GeneratedAnswer struct {
	Title      string
	Category   Category
	Keywords   []string
	AnswerText string
}

// Match is a resolver result: an existing record together with its
// similarity score against the incoming question
type Match struct {
	Record *Record
	Score  float64
}
