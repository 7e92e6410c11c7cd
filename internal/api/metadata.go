package api

import (
	"net/http"
	"time"

	"github.com/erazemk/menza/internal/menu"
)

// MetadataHandler serves the last-update record.
type MetadataHandler struct {
	Service *menu.Service
}

type metadataResponse struct {
	Timestamp *time.Time `json:"timestamp"`
	UpdatedBy string     `json:"updatedBy"`
}

// Get handles GET /api/metadata.
func (h *MetadataHandler) Get(w http.ResponseWriter, r *http.Request) {
	md, err := h.Service.Metadata(r.Context())
	if err != nil {
		serviceError(w, r, err, "failed to get metadata")
		return
	}

	resp := metadataResponse{}
	if md != nil {
		resp.Timestamp = &md.Timestamp
		resp.UpdatedBy = md.UpdatedBy
	}
	jsonResponse(w, http.StatusOK, resp)
}
