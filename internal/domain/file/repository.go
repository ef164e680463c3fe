package file

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, f *File) error
	ListAll(ctx context.Context) ([]File, error)
	FindByID(ctx context.Context, id string) (*File, error)
	FindByFilename(ctx context.Context, filename string) (*File, error)
	SetShareableLink(ctx context.Context, id, link string) error
	IncrementViewsByID(ctx context.Context, id string) error
	IncrementViewsByFilename(ctx context.Context, filename string) error
	// Reorder sets order = index for every id in one transaction and returns
	// how many records matched. Unknown ids are skipped.
	Reorder(ctx context.Context, ids []string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Create assigns the next sequence value as the initial order and inserts
// the record in the same transaction.
func (r *repository) Create(ctx context.Context, f *File) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next, err := nextSequence(tx, filesSequence)
		if err != nil {
			return err
		}
		f.Order = next
		f.Seq = next
		return tx.Create(f).Error
	})
	return classify(err)
}

func (r *repository) ListAll(ctx context.Context) ([]File, error) {
	files := make([]File, 0)
	err := r.db.WithContext(ctx).
		Order("sort_order ASC").
		Order("seq ASC").
		Find(&files).Error
	if err != nil {
		return nil, classify(err)
	}
	return files, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*File, error) {
	var f File
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, classify(err)
	}
	return &f, nil
}

func (r *repository) FindByFilename(ctx context.Context, filename string) (*File, error) {
	var f File
	if err := r.db.WithContext(ctx).Where("filename = ?", filename).First(&f).Error; err != nil {
		return nil, classify(err)
	}
	return &f, nil
}

func (r *repository) SetShareableLink(ctx context.Context, id, link string) error {
	res := r.db.WithContext(ctx).Model(&File{}).Where("id = ?", id).Update("shareable_link", link)
	return affectedOne(res)
}

// IncrementViewsByID is a single UPDATE so concurrent increments never lose
// updates.
func (r *repository) IncrementViewsByID(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&File{}).Where("id = ?", id).
		Update("views", gorm.Expr("views + ?", 1))
	return affectedOne(res)
}

func (r *repository) IncrementViewsByFilename(ctx context.Context, filename string) error {
	res := r.db.WithContext(ctx).Model(&File{}).Where("filename = ?", filename).
		Update("views", gorm.Expr("views + ?", 1))
	return affectedOne(res)
}

func (r *repository) Reorder(ctx context.Context, ids []string) (int64, error) {
	var matched int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		matched = 0
		for i, id := range ids {
			res := tx.Model(&File{}).Where("id = ?", id).Update("sort_order", int64(i))
			if res.Error != nil {
				return res.Error
			}
			matched += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, classify(err)
	}
	return matched, nil
}

// nextSequence returns the current counter value and advances it. The row
// lock taken by the UPDATE serializes concurrent creators.
func nextSequence(tx *gorm.DB, name string) (int64, error) {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&sequence{Name: name}).Error; err != nil {
		return 0, err
	}
	if err := tx.Model(&sequence{}).Where("name = ?", name).
		Update("value", gorm.Expr("value + ?", 1)).Error; err != nil {
		return 0, err
	}
	var seq sequence
	if err := tx.Where("name = ?", name).First(&seq).Error; err != nil {
		return 0, err
	}
	return seq.Value - 1, nil
}

func affectedOne(res *gorm.DB) error {
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrFileNotFound
	}
	return nil
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrFileNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
