package cart

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/db/models"
	pkgerrors "github.com/DevBuyLocal/LocalBuy-sub000/pkg/errors"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/pricing"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes local cart operations. The local cart is the
// pre-authentication staging area; once reconciliation pushes its lines to
// the server the service clears it.
type Service interface {
	AddLine(ctx context.Context, input AddLineInput) (*models.CartLine, error)
	IncreaseQuantity(ctx context.Context, productOptionID int64) (*models.CartLine, error)
	// DecreaseQuantity lowers the quantity by one and removes the line when
	// it would drop below one. The returned line is nil when removed.
	DecreaseQuantity(ctx context.Context, productOptionID int64) (*models.CartLine, error)
	SetNote(ctx context.Context, productOptionID int64, note string) (*models.CartLine, error)
	RemoveLine(ctx context.Context, productOptionID int64) error
	Lines(ctx context.Context) ([]models.CartLine, error)
	Summary(ctx context.Context) (pricing.Summary, error)
	Clear(ctx context.Context) error
}

type service struct {
	repo   Repository
	tx     txRunner
	logger *logger.Logger
}

// NewService builds the cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logger: logg}, nil
}

// AddLineInput captures the payload required to stage a cart line.
type AddLineInput struct {
	ProductOptionID    int64   `json:"product_option_id" validate:"required,gt=0"`
	Quantity           int     `json:"quantity" validate:"required,min=1"`
	Note               *string `json:"note,omitempty" validate:"omitempty,max=500"`
	UnitPriceCents     int64   `json:"unit_price_cents" validate:"min=0"`
	BulkUnitPriceCents *int64  `json:"bulk_unit_price_cents,omitempty" validate:"omitempty,min=0"`
	BulkThreshold      *int    `json:"bulk_threshold,omitempty" validate:"omitempty,min=1"`
}

// AddLine stages a line locally. Adding a product option already in the
// cart merges by summing quantities and keeping the newest note and prices.
func (s *service) AddLine(ctx context.Context, input AddLineInput) (*models.CartLine, error) {
	if err := validate.Struct(input); err != nil {
		return nil, formatValidationErrors(err)
	}
	if (input.BulkUnitPriceCents == nil) != (input.BulkThreshold == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bulk price and threshold must be set together")
	}

	var result *models.CartLine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindByProductOption(ctx, input.ProductOptionID)
		if err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return err
		}

		if existing != nil {
			existing.Quantity += input.Quantity
			if input.Note != nil {
				existing.Note = input.Note
			}
			existing.UnitPriceCents = input.UnitPriceCents
			existing.BulkUnitPriceCents = input.BulkUnitPriceCents
			existing.BulkThreshold = input.BulkThreshold
			result, err = repo.Update(ctx, existing)
			return err
		}

		result, err = repo.Create(ctx, &models.CartLine{
			ID:                 uuid.New(),
			ProductOptionID:    input.ProductOptionID,
			Quantity:           input.Quantity,
			Note:               input.Note,
			UnitPriceCents:     input.UnitPriceCents,
			BulkUnitPriceCents: input.BulkUnitPriceCents,
			BulkThreshold:      input.BulkThreshold,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(s.logger.WithProductOption(ctx, result.ProductOptionID), "cart line staged")
	return result, nil
}

func (s *service) IncreaseQuantity(ctx context.Context, productOptionID int64) (*models.CartLine, error) {
	var result *models.CartLine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		line, err := repo.FindByProductOption(ctx, productOptionID)
		if err != nil {
			return err
		}
		line.Quantity++
		result, err = repo.Update(ctx, line)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) DecreaseQuantity(ctx context.Context, productOptionID int64) (*models.CartLine, error) {
	var result *models.CartLine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		line, err := repo.FindByProductOption(ctx, productOptionID)
		if err != nil {
			return err
		}
		if line.Quantity <= 1 {
			result = nil
			return repo.Delete(ctx, line.ID)
		}
		line.Quantity--
		result, err = repo.Update(ctx, line)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) SetNote(ctx context.Context, productOptionID int64, note string) (*models.CartLine, error) {
	note = strings.TrimSpace(note)
	if len(note) > 500 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note exceeds 500 characters")
	}

	line, err := s.repo.FindByProductOption(ctx, productOptionID)
	if err != nil {
		return nil, err
	}
	if note == "" {
		line.Note = nil
	} else {
		line.Note = &note
	}
	return s.repo.Update(ctx, line)
}

func (s *service) RemoveLine(ctx context.Context, productOptionID int64) error {
	line, err := s.repo.FindByProductOption(ctx, productOptionID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, line.ID)
}

func (s *service) Lines(ctx context.Context) ([]models.CartLine, error) {
	return s.repo.List(ctx)
}

// Summary quotes the whole local cart through the pricing engine.
func (s *service) Summary(ctx context.Context) (pricing.Summary, error) {
	lines, err := s.repo.List(ctx)
	if err != nil {
		return pricing.Summary{}, err
	}
	inputs := make([]pricing.LineInput, 0, len(lines))
	for _, line := range lines {
		inputs = append(inputs, pricing.LineInput{
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			Bulk:           bulkTier(line),
		})
	}
	return pricing.Summarize(inputs), nil
}

func (s *service) Clear(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "local cart cleared")
	return nil
}

// bulkTier maps the persisted tier columns back to a pricing tier. Both
// columns are set together or not at all.
func bulkTier(line models.CartLine) *pricing.Tier {
	if line.BulkUnitPriceCents == nil || line.BulkThreshold == nil {
		return nil
	}
	return &pricing.Tier{UnitPriceCents: *line.BulkUnitPriceCents, Threshold: *line.BulkThreshold}
}

func formatValidationErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		details := map[string]string{}
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = fieldErr.Tag()
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}
