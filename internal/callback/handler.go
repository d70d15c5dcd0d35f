package callback

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/DevBuyLocal/LocalBuy-sub000/internal/settlement"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/enums"
	pkgerrors "github.com/DevBuyLocal/LocalBuy-sub000/pkg/errors"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// callbackQuery is what the gateway appends to the redirect URL. Everything
// here is untrusted; the settlement engine verifies server-side before any
// state is believed.
type callbackQuery struct {
	Reference string `form:"reference" validate:"required"`
	Status    string `form:"status" validate:"required,oneof=success failed cancelled"`
	Phase     string `form:"phase" validate:"required,oneof=DELIVERY BALANCE"`
	OrderID   int64  `form:"order_id" validate:"required,gt=0"`
}

type callbackResponse struct {
	OrderID        int64  `json:"order_id"`
	Reference      string `json:"reference"`
	OrderStatus    string `json:"order_status"`
	TotalPaidCents int64  `json:"total_paid_cents"`
}

func paymentCallback(logg *logger.Logger, engine settlement.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		query, err := parseCallbackQuery(r)
		if err != nil {
			writeError(ctx, logg, w, err)
			return
		}

		outcome := settlement.GatewayOutcome(query.Status)
		var result *settlement.VerifyResult
		switch enums.PaymentPhase(query.Phase) {
		case enums.PaymentPhaseDelivery:
			result, err = engine.VerifyDelivery(ctx, query.OrderID, query.Reference, outcome)
		case enums.PaymentPhaseBalance:
			result, err = engine.VerifyBalance(ctx, query.OrderID, query.Reference, outcome)
		}
		if err != nil {
			writeError(ctx, logg, w, err)
			return
		}

		writeJSON(w, http.StatusOK, callbackResponse{
			OrderID:        query.OrderID,
			Reference:      query.Reference,
			OrderStatus:    string(result.OrderStatus),
			TotalPaidCents: result.TotalPaidCents,
		})
	}
}

func parseCallbackQuery(r *http.Request) (*callbackQuery, error) {
	values := r.URL.Query()
	query := &callbackQuery{
		Reference: strings.TrimSpace(values.Get("reference")),
		Status:    strings.ToLower(strings.TrimSpace(values.Get("status"))),
		Phase:     strings.ToUpper(strings.TrimSpace(values.Get("phase"))),
	}
	if raw := strings.TrimSpace(values.Get("order_id")); raw != "" {
		orderID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id must be an integer")
		}
		query.OrderID = orderID
	}

	if err := validate.Struct(query); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			details := map[string]string{}
			for _, fieldErr := range errs {
				details[fieldErr.Field()] = fieldErr.Tag()
			}
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid callback parameters").WithDetails(details)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid callback parameters")
	}
	return query, nil
}
