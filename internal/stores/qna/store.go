package qna

import (
	"context"
	"errors"
	"fmt"

	"github.com/inu9431/qna-archiver/pkg/qna"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// ErrRecordNotFound is returned when a record id does not exist
var ErrRecordNotFound = errors.New("qna record not found")

// Store handles persistence of Q&A records using MySQL
type Store struct {
	db         *gorm.DB
	categories *qna.CategorySet
}

// NewStore creates a new record store with a MySQL connection
func NewStore(databaseURL string, categories *qna.CategorySet) (*Store, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return newStore(db, categories)
}

// NewStoreWithDB creates a record store on an already-open GORM connection
func NewStoreWithDB(db *gorm.DB, categories *qna.CategorySet) (*Store, error) {
	return newStore(db, categories)
}

func newStore(db *gorm.DB, categories *qna.CategorySet) (*Store, error) {
	if categories == nil {
		categories = qna.DefaultCategories()
	}

	store := &Store{db: db, categories: categories}

	if err := db.AutoMigrate(&RecordModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return store, nil
}

// CreateFields holds the values for a new record. HitCount starts at 1
type CreateFields struct {
	QuestionText string
	Title        string
	Category     qna.Category
	Keywords     []string
	AnswerText   string
}

// Create persists a new record and returns it with its assigned id
func (s *Store) Create(ctx context.Context, fields CreateFields) (*qna.Record, error) {
	title := fields.Title
	if title == "" {
		title = qna.DefaultTitle
	}

	model := &RecordModel{
		QuestionText: fields.QuestionText,
		Title:        title,
		Category:     string(s.categories.Parse(string(fields.Category))),
		Keywords:     joinKeywords(fields.Keywords),
		AnswerText:   fields.AnswerText,
		HitCount:     1,
		IsVerified:   false,
	}

	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, qna.NewStorageError("create", err)
	}

	return model.toDomain(s.categories), nil
}

// FindByID retrieves a record by its id
func (s *Store) FindByID(ctx context.Context, id uint) (*qna.Record, error) {
	var model RecordModel
	result := s.db.WithContext(ctx).First(&model, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, qna.NewStorageError("find", result.Error)
	}

	return model.toDomain(s.categories), nil
}

// ListRecent returns the most recently created records, newest first
// With verifiedOnly set, only verified records are returned
func (s *Store) ListRecent(ctx context.Context, limit int, verifiedOnly bool) ([]*qna.Record, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if verifiedOnly {
		query = query.Where("is_verified = ?", true)
	}

	var models []RecordModel
	if err := query.Find(&models).Error; err != nil {
		return nil, qna.NewStorageError("list", err)
	}

	records := make([]*qna.Record, len(models))
	for i := range models {
		records[i] = models[i].toDomain(s.categories)
	}
	return records, nil
}

// ListUnpublishedVerified returns verified records that have no publish
// reference yet, oldest first so the publish sweep drains in order
func (s *Store) ListUnpublishedVerified(ctx context.Context, limit int) ([]*qna.Record, error) {
	query := s.db.WithContext(ctx).
		Where("is_verified = ?", true).
		Where("publish_reference = '' OR publish_reference IS NULL").
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []RecordModel
	if err := query.Find(&models).Error; err != nil {
		return nil, qna.NewStorageError("list", err)
	}

	records := make([]*qna.Record, len(models))
	for i := range models {
		records[i] = models[i].toDomain(s.categories)
	}
	return records, nil
}

// IncrementHitCount applies a single atomic hit_count increment to one record
func (s *Store) IncrementHitCount(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).
		Model(&RecordModel{}).
		Where("id = ?", id).
		UpdateColumn("hit_count", gorm.Expr("hit_count + ?", 1))
	if result.Error != nil {
		return qna.NewStorageError("increment", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// SetPublishReference records the external page reference with compare-and-set
// semantics: the update only applies while the reference is still empty
// Returns false when the reference was already set by an earlier publish
func (s *Store) SetPublishReference(ctx context.Context, id uint, ref string) (bool, error) {
	if ref == "" {
		return false, qna.NewStorageError("set_publish_reference", errors.New("reference cannot be empty"))
	}

	result := s.db.WithContext(ctx).
		Model(&RecordModel{}).
		Where("id = ?", id).
		Where("publish_reference = '' OR publish_reference IS NULL").
		UpdateColumn("publish_reference", ref)
	if result.Error != nil {
		return false, qna.NewStorageError("set_publish_reference", result.Error)
	}

	if result.RowsAffected == 0 {
		// Either the record is gone or the reference is already set
		var count int64
		if err := s.db.WithContext(ctx).Model(&RecordModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return false, qna.NewStorageError("set_publish_reference", err)
		}
		if count == 0 {
			return false, ErrRecordNotFound
		}
		return false, nil
	}

	return true, nil
}

// SetVerified marks a record as verified (or not). Verification is a reviewer
// action, it gates publication eligibility
func (s *Store) SetVerified(ctx context.Context, id uint, verified bool) error {
	result := s.db.WithContext(ctx).
		Model(&RecordModel{}).
		Where("id = ?", id).
		UpdateColumn("is_verified", verified)
	if result.Error != nil {
		return qna.NewStorageError("set_verified", result.Error)
	}
	if result.RowsAffected == 0 {
		// UpdateColumn reports zero rows when the value is unchanged too,
		// so distinguish a missing record explicitly
		var count int64
		if err := s.db.WithContext(ctx).Model(&RecordModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return qna.NewStorageError("set_verified", err)
		}
		if count == 0 {
			return ErrRecordNotFound
		}
	}
	return nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.Close()
}
