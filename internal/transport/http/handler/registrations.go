package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/seller-onboarding/internal/application/registration"
	"github.com/seller-onboarding/internal/domain"
	"github.com/seller-onboarding/internal/transport/http/middleware"
)

// RegistrationHandler serves the wizard's step checks, final submission and
// the registered seller's own profile.
type RegistrationHandler struct {
	svc registration.Service
}

func NewRegistrationHandler(svc registration.Service) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

func decodeDraft(r *http.Request) (*domain.RegistrationDraft, error) {
	d := domain.NewRegistrationDraft()
	if err := json.NewDecoder(r.Body).Decode(d); err != nil {
		return nil, err
	}
	return d, nil
}

// CheckStep evaluates the guard of the step named in the URL against the posted draft.
func (h *RegistrationHandler) CheckStep(w http.ResponseWriter, r *http.Request) {
	step, err := registration.ParseStep(chi.URLParam(r, "step"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown step")
		return
	}
	d, err := decodeDraft(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	missing := registration.MissingFields(d, step)
	if missing == nil {
		missing = []string{}
	}
	writeJSON(w, http.StatusOK, StepEnvelope{
		Step:       step.String(),
		CanAdvance: len(missing) == 0,
		Missing:    missing,
	})
}

func (h *RegistrationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	d, err := decodeDraft(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.Submit(r.Context(), d)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RegistrationEnvelope{Bearer: res.Token, Seller: res.Seller})
}

// Me returns the seller identified by the bearer token.
func (h *RegistrationHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s, err := h.svc.GetSeller(r.Context(), claims.SellerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
