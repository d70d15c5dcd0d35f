package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/db/models"
	pkgerrors "github.com/DevBuyLocal/LocalBuy-sub000/pkg/errors"
)

// Repository defines the persistence surface required by the cart service.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.CartLine, error)
	FindByProductOption(ctx context.Context, productOptionID int64) (*models.CartLine, error)
	Create(ctx context.Context, line *models.CartLine) (*models.CartLine, error)
	Update(ctx context.Context, line *models.CartLine) (*models.CartLine, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) error
}

// LineRepository manages persistent local cart lines.
type LineRepository struct {
	db *gorm.DB
}

// NewLineRepository binds the repository to the provided DB handle.
func NewLineRepository(db *gorm.DB) *LineRepository {
	return &LineRepository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *LineRepository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &LineRepository{db: tx}
}

// List returns all local cart lines, oldest first.
func (r *LineRepository) List(ctx context.Context) ([]models.CartLine, error) {
	var lines []models.CartLine
	if err := r.db.WithContext(ctx).Order("created_at asc").Find(&lines).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart lines")
	}
	return lines, nil
}

// FindByProductOption looks a line up by its server-side product option id.
func (r *LineRepository) FindByProductOption(ctx context.Context, productOptionID int64) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).Where("product_option_id = ?", productOptionID).First(&line).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find cart line")
	}
	return &line, nil
}

// Create inserts a new local cart line.
func (r *LineRepository) Create(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart line already exists for product option")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
	}
	return line, nil
}

// Update persists the full line row.
func (r *LineRepository) Update(ctx context.Context, line *models.CartLine) (*models.CartLine, error) {
	if err := r.db.WithContext(ctx).Save(line).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
	}
	return line, nil
}

// Delete removes a single line by row id.
func (r *LineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CartLine{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
	}
	return nil
}

// DeleteAll clears the local cart.
func (r *LineRepository) DeleteAll(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.CartLine{}).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart lines")
	}
	return nil
}
