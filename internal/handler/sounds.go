package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/faiface/beep"

	"resttimer/internal/feedback"
)

// Sound handles GET /sounds/{cue} requests. It serves the feedback cue as a
// WAV file so stream clients can play it on countdown and completion events.
func (h *Handler) Sound(w http.ResponseWriter, r *http.Request) {
	cue := feedback.Cue(strings.TrimSuffix(r.PathValue("cue"), ".wav"))

	tones, ok := cue.Tones()
	if !ok {
		h.writeError(w, http.StatusNotFound, "not_found", "unknown sound cue")
		return
	}

	data, err := feedback.RenderWAV(beep.SampleRate(h.cfg.SampleRate), tones)
	if err != nil {
		h.logger.Error("rendering sound cue", "cue", cue, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "failed to render sound")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
