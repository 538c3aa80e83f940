// AngelaMos | 2026
// handler.go

package embed

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/configurator-api/internal/configurator"
	"github.com/carterperez-dev/templates/configurator-api/internal/core"
)

const maxQuoteBody = 64 << 10

type Publisher interface {
	PublishedDocument(ctx context.Context, tenantID, configuratorID string) (*configurator.Document, error)
	SubmitQuote(
		ctx context.Context,
		tenantID, configuratorID string,
		req configurator.SubmitQuoteRequest,
	) (*configurator.Quote, error)
}

type QuoteReceipt struct {
	ID       string `json:"id"`
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type Handler struct {
	publisher Publisher
	gate      *Gate
	validator *validator.Validate
}

func NewHandler(publisher Publisher, gate *Gate) *Handler {
	return &Handler{
		publisher: publisher,
		gate:      gate,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes mounts the public embed surface. The gate runs before
// routing, so preflight requests are answered for any path. quoteLimit
// may be nil.
func (h *Handler) RegisterRoutes(r chi.Router, quoteLimit func(http.Handler) http.Handler) {
	r.Route("/embed", func(r chi.Router) {
		r.Use(h.gate.Handler)

		r.Get("/configurators/{configuratorID}", h.GetDocument)

		r.Group(func(r chi.Router) {
			if quoteLimit != nil {
				r.Use(quoteLimit)
			}
			r.Post("/configurators/{configuratorID}/quotes", h.SubmitQuote)
		})
	})
}

func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	t := TenantFrom(r.Context())

	doc, err := h.publisher.PublishedDocument(r.Context(), t.ID, chi.URLParam(r, "configuratorID"))
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, doc)
}

func (h *Handler) SubmitQuote(w http.ResponseWriter, r *http.Request) {
	t := TenantFrom(r.Context())

	var req configurator.SubmitQuoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuoteBody)).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	q, err := h.publisher.SubmitQuote(r.Context(), t.ID, chi.URLParam(r, "configuratorID"), req)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.Created(w, QuoteReceipt{
		ID:       q.ID,
		Total:    q.Total,
		Currency: q.Currency,
		Status:   q.Status,
	})
}
