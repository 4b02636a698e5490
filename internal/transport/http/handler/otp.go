package handler

import (
	"encoding/json"
	"net/http"

	"github.com/seller-onboarding/internal/application/otp"
	"github.com/seller-onboarding/internal/domain"
)

// OTPHandler exposes email verification.
type OTPHandler struct {
	svc otp.Service
}

func NewOTPHandler(svc otp.Service) *OTPHandler { return &OTPHandler{svc: svc} }

type sendOTPRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := h.svc.SendOTP(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OTPSendEnvelope{
		SessionID: res.SessionID,
		ExpiresAt: res.ExpiresAt,
		Message:   "verification code sent",
	})
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.VerifyOTP(r.Context(), req.Email, req.Code); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "email verified"})
}

func (h *OTPHandler) Status(w http.ResponseWriter, r *http.Request) {
	addr := domain.NormalizeEmail(r.URL.Query().Get("email"))
	if addr == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	ok, err := h.svc.IsEmailVerified(r.Context(), addr)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OTPStatusEnvelope{Email: addr, Verified: ok})
}
