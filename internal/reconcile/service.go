package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/DevBuyLocal/LocalBuy-sub000/internal/api"
	"github.com/DevBuyLocal/LocalBuy-sub000/internal/cart"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/db/models"
	pkgerrors "github.com/DevBuyLocal/LocalBuy-sub000/pkg/errors"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
)

// Service merges the locally staged cart into the server-authoritative one
// after login. The server wins on conflicts: a product option already in the
// remote cart keeps its remote quantity and note, and the local copy of that
// line is simply dropped with the rest of the local cart once the merge
// completes.
type Service interface {
	// Run performs one reconciliation pass. Concurrent calls coalesce:
	// while a pass is in flight, additional calls return immediately
	// without touching either cart. Run never clears the local cart unless
	// every missing line was pushed successfully, so it is safe to re-run
	// after a failure.
	Run(ctx context.Context) error
}

type service struct {
	cartAPI api.CartAPI
	local   cart.Service
	logger  *logger.Logger

	running sync.Mutex
}

// NewService builds the reconciler.
func NewService(cartAPI api.CartAPI, local cart.Service, logg *logger.Logger) (Service, error) {
	if cartAPI == nil {
		return nil, fmt.Errorf("cart api required")
	}
	if local == nil {
		return nil, fmt.Errorf("local cart service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{cartAPI: cartAPI, local: local, logger: logg}, nil
}

func (s *service) Run(ctx context.Context) error {
	if !s.running.TryLock() {
		s.logger.Info(ctx, "reconciliation already in flight, skipping")
		return nil
	}
	defer s.running.Unlock()

	localLines, err := s.local.Lines(ctx)
	if err != nil {
		return err
	}
	if len(localLines) == 0 {
		s.logger.Info(ctx, "local cart empty, nothing to reconcile")
		return nil
	}

	remote, err := s.cartAPI.GetCart(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch remote cart")
	}

	missing := missingLines(localLines, remote)
	if len(missing) == 0 {
		s.logger.Info(ctx, "remote cart already has every local line")
		return nil
	}

	for _, line := range missing {
		if err := s.pushLine(ctx, line); err != nil {
			// Halt and keep the local cart so a later run can retry the
			// remaining lines.
			return err
		}
	}

	if err := s.local.Clear(ctx); err != nil {
		return err
	}

	refreshed, err := s.cartAPI.GetCart(ctx)
	if err != nil {
		// The merge itself succeeded; the refresh is only a view update.
		s.logger.Warn(ctx, "cart reconciled but refresh failed: "+err.Error())
		return nil
	}
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"pushed": len(missing),
		"remote": len(refreshed.Lines),
	}), "cart reconciled")
	return nil
}

// pushLine creates the remote line and, when the local line carries a note,
// attaches it. Line creation does not return the new line id, so the note
// step re-fetches the cart and resolves the line by product option id.
func (s *service) pushLine(ctx context.Context, line models.CartLine) error {
	ctx = s.logger.WithProductOption(ctx, line.ProductOptionID)

	if err := s.cartAPI.CreateCartLine(ctx, line.ProductOptionID, line.Quantity); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create remote cart line")
	}

	if line.Note == nil || *line.Note == "" {
		s.logger.Info(ctx, "cart line pushed")
		return nil
	}

	refreshed, err := s.cartAPI.GetCart(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "re-fetch cart for note attachment")
	}
	created, ok := refreshed.FindLine(line.ProductOptionID)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeDependency, "created cart line missing from re-fetched cart")
	}
	if err := s.cartAPI.AttachNote(ctx, created.LineID, *line.Note); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach note to cart line")
	}

	s.logger.Info(ctx, "cart line pushed with note")
	return nil
}

// missingLines returns the local lines whose product option is absent from
// the remote cart, preserving local ordering.
func missingLines(local []models.CartLine, remote *api.RemoteCart) []models.CartLine {
	var out []models.CartLine
	for _, line := range local {
		if _, ok := remote.FindLine(line.ProductOptionID); ok {
			continue
		}
		out = append(out, line)
	}
	return out
}
