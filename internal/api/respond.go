package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rflorenc/catalog-migrator/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps a missing artifact to 404 and anything else to 500.
func writeStoreError(w http.ResponseWriter, err error, hint string) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, hint)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
