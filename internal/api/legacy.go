package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kalambet/ecoswap/internal/items"
	"github.com/kalambet/ecoswap/internal/pipeline"
	"github.com/kalambet/ecoswap/internal/storage"
)

// legacyStatus is the acknowledgement shape of the GET dispatcher. Errors
// use it too, so old clients can keep checking the status field.
type legacyStatus struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleLegacy serves the single GET endpoint used by the browser front end.
// The request variant is decided from which parameters are present before
// anything else runs.
func handleLegacy(svc *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := pipeline.ParseLegacy(r.URL.Query())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, legacyStatus{Status: "error", Message: "Invalid request"})
			return
		}

		resp, err := svc.Handle(r.Context(), req)
		if err != nil {
			var verr *items.ValidationError
			switch {
			case errors.As(err, &verr):
				writeJSON(w, http.StatusBadRequest, legacyStatus{Status: "error", Message: verr.Error()})
			case errors.Is(err, storage.ErrStorage):
				slog.Error("storage failure", "error", err)
				writeJSON(w, http.StatusInternalServerError, legacyStatus{Status: "error", Message: "Storage unavailable"})
			default:
				slog.Error("legacy request failed", "error", err)
				writeJSON(w, http.StatusInternalServerError, legacyStatus{Status: "error", Message: "Internal error"})
			}
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
