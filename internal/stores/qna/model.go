package qna

import (
	"strings"
	"time"

	"github.com/inu9431/qna-archiver/pkg/qna"
)

// RecordModel represents the database model for archived Q&A records
type RecordModel struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`

	QuestionText string `json:"question_text" gorm:"column:question_text;type:text;not null"`
	Title        string `json:"title" gorm:"column:title;size:200;not null"`
	Category     string `json:"category" gorm:"column:category;size:50;default:General"`
	Keywords     string `json:"keywords" gorm:"column:keywords;size:500"`
	AnswerText   string `json:"answer_text" gorm:"column:answer_text;type:text"`

	HitCount   int  `json:"hit_count" gorm:"column:hit_count;not null;default:1"`
	IsVerified bool `json:"is_verified" gorm:"column:is_verified;not null;default:false;index"`

	PublishReference string `json:"publish_reference" gorm:"column:publish_reference;size:500"`
}

// TableName sets the table name for GORM
func (RecordModel) TableName() string {
	return "qna_records"
}

// toDomain converts the database model to the domain record
func (m *RecordModel) toDomain(categories *qna.CategorySet) *qna.Record {
	return &qna.Record{
		ID:               m.ID,
		QuestionText:     m.QuestionText,
		Title:            m.Title,
		Category:         categories.Parse(m.Category),
		Keywords:         splitKeywords(m.Keywords),
		AnswerText:       m.AnswerText,
		HitCount:         m.HitCount,
		IsVerified:       m.IsVerified,
		PublishReference: m.PublishReference,
		CreatedAt:        m.CreatedAt,
	}
}

// joinKeywords serializes a keyword list into the storage column, dropping
// empties and duplicates while preserving insertion order
func joinKeywords(keywords []string) string {
	seen := make(map[string]bool)
	var kept []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen[strings.ToLower(kw)] {
			continue
		}
		seen[strings.ToLower(kw)] = true
		kept = append(kept, kw)
	}
	return strings.Join(kept, ",")
}

// splitKeywords deserializes the storage column back into a keyword list
func splitKeywords(column string) []string {
	if column == "" {
		return nil
	}

	parts := strings.Split(column, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}
