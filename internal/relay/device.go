package relay

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/almostacms/almostacms/internal/log"
)

// Device forwards a device-flow call to GitHub with the relay's client id.
// step "code" requests a device code; step "token" polls for the token.
// GitHub's status and body are passed through unchanged.
func (h *Handler) Device(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !h.AllowedOrigin(origin) {
		writeError(w, http.StatusForbidden, "Unauthorized origin")
		return
	}

	var target string
	switch r.PathValue("step") {
	case "code":
		target = h.cfg.DeviceCodeURL
	case "token":
		target = h.cfg.TokenURL
	default:
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	params := map[string]any{}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	params["client_id"] = h.cfg.ClientID
	payload, _ := json.Marshal(params)

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Device flow request failed", Message: err.Error()})
		return
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := h.doer.Do(req)
	if err != nil {
		log.ErrorErr(log.CatRelay, "device flow request failed", err, "step", r.PathValue("step"))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Device flow request failed", Message: err.Error()})
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Warn(log.CatRelay, "device flow response copy failed", "error", err)
	}
}
