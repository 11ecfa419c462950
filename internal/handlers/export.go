package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"pocket-survival/internal/export"
	"pocket-survival/internal/log"
)

// Export downloads the owner's whole ledger (?format=csv|json|yaml).
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.rec.Rejected("format")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := h.tracker.Records(r.Context(), owner(r))
	if err != nil {
		log.FromContext(r.Context()).Err(r.Context(), "export failed", "export", err, log.FieldOwner, owner(r))
		http.Error(w, "The ledger could not be reached. Try again.", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, records, h.tracker.Location()); err != nil {
		log.FromContext(r.Context()).Err(r.Context(), "export encoding failed", "export", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	name := export.Filename(format, h.tracker.Now())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = buf.WriteTo(w)
}
