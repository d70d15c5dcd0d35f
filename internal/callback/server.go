// Package callback runs the localhost HTTP endpoint the payment gateway
// redirects back to after a checkout hand-off.
package callback

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/DevBuyLocal/LocalBuy-sub000/internal/settlement"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/config"
	pkgerrors "github.com/DevBuyLocal/LocalBuy-sub000/pkg/errors"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
)

// NewHandler builds the callback router.
func NewHandler(cfg config.CallbackConfig, logg *logger.Logger, engine settlement.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(
		requestID(logg),
		logging(logg),
		cors.New(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}).Handler,
	)

	r.Get("/healthz", healthz)
	r.Get("/payments/callback", paymentCallback(logg, engine))

	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	msg := meta.PublicMessage
	if typed.Message() != "" && typed.Code() != pkgerrors.CodeInternal {
		msg = typed.Message()
	}

	payload := errorEnvelope{Error: apiError{Code: string(typed.Code()), Message: msg}}
	if meta.DetailsAllowed {
		payload.Error.Details = typed.Details()
	}

	if logg != nil {
		logg.Error(ctx, "callback request failed", err)
	}
	writeJSON(w, meta.HTTPStatus, payload)
}
