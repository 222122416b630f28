package handler

import (
	"encoding/json"
	"net/http"

	"resttimer/internal/domain"
)

// Create handles POST /timers requests.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	seconds := h.cfg.DefaultSeconds
	if req.Seconds != nil {
		seconds = *req.Seconds
		if err := validateSeconds(seconds); err != nil {
			h.writeError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
	}

	variant, err := parseVariant(req.Variant, h.cfg.DefaultVariant)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	session, err := h.service.Create(r.Context(), seconds, variant, req.Muted)
	if err != nil {
		h.writeServiceError(w, err, "failed to create timer")
		return
	}

	h.writeJSON(w, http.StatusCreated, newTimerResponse(session.ID, session.Timer.State()))
}

// Get handles GET /timers/{id} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	state, err := h.service.State(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to read timer")
		return
	}

	h.writeJSON(w, http.StatusOK, newTimerResponse(id, state))
}

// Toggle handles POST /timers/{id}/toggle requests.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	state, err := h.service.Toggle(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to toggle timer")
		return
	}

	h.writeJSON(w, http.StatusOK, newTimerResponse(id, state))
}

// Reset handles POST /timers/{id}/reset requests.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	state, err := h.service.Reset(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err, "failed to reset timer")
		return
	}

	h.writeJSON(w, http.StatusOK, newTimerResponse(id, state))
}

// Adjust handles POST /timers/{id}/adjust requests.
// Running timers are returned unchanged.
func (h *Handler) Adjust(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}
	if err := validateDelta(req.Delta); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	state, err := h.service.Adjust(r.Context(), id, req.Delta)
	if err != nil {
		h.writeServiceError(w, err, "failed to adjust timer")
		return
	}

	h.writeJSON(w, http.StatusOK, newTimerResponse(id, state))
}

// Preset handles POST /timers/{id}/preset requests.
func (h *Handler) Preset(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req PresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}
	if err := validateSeconds(req.Seconds); err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	state, err := h.service.SelectPreset(r.Context(), id, req.Seconds)
	if err != nil {
		h.writeServiceError(w, err, "failed to select preset")
		return
	}

	h.writeJSON(w, http.StatusOK, newTimerResponse(id, state))
}

// Mute handles POST /timers/{id}/mute requests.
func (h *Handler) Mute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req MuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	if err := h.service.SetMuted(r.Context(), id, req.Muted); err != nil {
		h.writeServiceError(w, err, "failed to update mute")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /timers/{id} requests.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeServiceError(w, err, "failed to delete timer")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Presets handles GET /presets requests.
func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	policies := h.service.Policies()

	resp := PresetsResponse{
		Presets:  h.service.Presets().Seconds(),
		Variants: make([]VariantResponse, 0, len(domain.Variants())),
	}
	for _, v := range domain.Variants() {
		p, _ := policies.Lookup(v)
		resp.Variants = append(resp.Variants, VariantResponse{
			Name:                 string(v),
			MaxAdjustableSeconds: p.MaxAdjustableSeconds,
			MinAdjustableSeconds: domain.MinAdjustableSeconds,
			SettleDelayMillis:    p.SettleDelay.Milliseconds(),
			MinPulseMillis:       p.MinPulse.Milliseconds(),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}
