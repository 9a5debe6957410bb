package archive

// Status tags the business outcome of processing one inbound question.
// The transport layer maps these onto response codes; the pipeline itself
// never signals business outcomes through errors
type Status string

const (
	// StatusNew means no duplicate was found and a new record was created
	StatusNew Status = "new"

	// StatusDuplicate means the question matched an existing unverified record
	StatusDuplicate Status = "duplicate"

	// StatusVerified means the question matched a verified record
	StatusVerified Status = "verified"
)

// Submission is one inbound question
type Submission struct {
	QuestionText string
	Image        []byte
}

// Outcome is the result of a fully processed submission
type Outcome struct {
	Status       Status
	RecordID     uint
	Title        string
	AnswerText   string
	Keywords     []string
	HitCount     int
	ReferenceURL string

	// PublishFailed marks a successful submission whose publish sub-step
	// failed; the record is stored and answerable, only lacking a reference
	PublishFailed bool
}
