package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-cart/api/responses"
	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
	"github.com/angelmondragon/marketplace-cart/pkg/logger"
)

// BuyerIDHeader carries the authenticated buyer identity, injected by the
// gateway in front of this service. Session handling itself lives upstream.
const BuyerIDHeader = "X-Buyer-ID"

type contextKey string

const ctxBuyerID contextKey = "buyer_id"

// BuyerIDFromContext returns the buyer id stored by BuyerAuth, or uuid.Nil.
func BuyerIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxBuyerID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// WithBuyerID injects the buyer identifier into the context.
func WithBuyerID(ctx context.Context, buyerID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxBuyerID, buyerID)
}

// BuyerAuth requires a parseable buyer id header on every request it guards.
func BuyerAuth(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(BuyerIDHeader)
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing"))
				return
			}
			buyerID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid buyer identity"))
				return
			}

			ctx := WithBuyerID(r.Context(), buyerID)
			if logg != nil {
				ctx = logg.WithBuyerID(ctx, buyerID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
