package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

// ArchiveHandler lists cold-storage archive objects.
type ArchiveHandler struct {
	reader domain.BlobReader
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler backed by the given reader.
func NewArchiveHandler(reader domain.BlobReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{reader: reader, logger: logger}
}

// ListArchives returns the archive objects under archive/, optionally
// narrowed by ?kind=ledger or ?kind=alerts.
// GET /api/archives
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	prefix := "archive/"
	if kind := r.URL.Query().Get("kind"); kind != "" {
		// The kind maps directly onto the key layout; refuse path tricks.
		if strings.ContainsAny(kind, "/\\.") {
			writeError(w, http.StatusBadRequest, "invalid kind")
			return
		}
		prefix += kind + "/"
	}

	infos, err := h.reader.List(r.Context(), prefix)
	if err != nil {
		logHandler(h.logger, "list_archives").ErrorContext(r.Context(), "listing archives",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}

	type archiveObject struct {
		Path         string `json:"path"`
		Size         int64  `json:"size"`
		LastModified string `json:"last_modified"`
	}
	objects := make([]archiveObject, 0, len(infos))
	for _, info := range infos {
		objects = append(objects, archiveObject{
			Path:         info.Path,
			Size:         info.Size,
			LastModified: info.LastModified.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"archives": objects,
		"count":    len(objects),
	})
}
