// Package handler exposes eligibility checks and order placement over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"equitygate/internal/investment/models"
	"equitygate/internal/investment/service"
	"equitygate/internal/transport/http/shared"
	id "equitygate/pkg/domain"
)

// Handler handles investment endpoints.
type Handler struct {
	investments *service.Service
	logger      *slog.Logger
}

func New(investments *service.Service, logger *slog.Logger) *Handler {
	return &Handler{investments: investments, logger: logger}
}

// Register mounts the investment routes on the authenticated router group.
func (h *Handler) Register(r chi.Router) {
	r.Get("/companies/{companyID}/eligibility", h.handleCheck)
	r.Post("/companies/{companyID}/subscribe", h.handlePlace(h.investments.Subscribe))
	r.Post("/companies/{companyID}/buy", h.handlePlace(h.investments.BuyShares))
	r.Post("/companies/{companyID}/top-up", h.handlePlace(h.investments.TopUp))
	r.Get("/investments", h.handleList)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	decision, err := h.investments.Check(r.Context(), companyID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, decision)
}

type placeRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

type placeResponse struct {
	Decision   models.Decision     `json:"decision"`
	Investment *investmentResponse `json:"investment,omitempty"`
}

type placeFunc func(ctx context.Context, companyID id.CompanyID, amountCents int64) (*models.Investment, models.Decision, error)

func (h *Handler) handlePlace(place placeFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyID"))
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		var req placeRequest
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.WriteError(w, err)
			return
		}
		inv, decision, err := place(r.Context(), companyID, req.AmountCents)
		if err != nil {
			shared.WriteError(w, err)
			return
		}

		resp := placeResponse{Decision: decision}
		status := http.StatusOK
		if inv != nil {
			ir := toInvestmentResponse(inv)
			resp.Investment = &ir
			status = http.StatusCreated
		}
		shared.WriteJSON(w, status, resp)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	investments, err := h.investments.ListByUser(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]investmentResponse, 0, len(investments))
	for _, inv := range investments {
		out = append(out, toInvestmentResponse(inv))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

type investmentResponse struct {
	ID          string `json:"id"`
	CompanyID   string `json:"company_id"`
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
}

func toInvestmentResponse(inv *models.Investment) investmentResponse {
	return investmentResponse{
		ID:          inv.ID.String(),
		CompanyID:   inv.CompanyID.String(),
		Kind:        string(inv.Kind),
		AmountCents: inv.AmountCents,
		Status:      string(inv.Status),
	}
}
