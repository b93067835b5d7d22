package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kestrelwallet/walletbridge/approval"
	"github.com/kestrelwallet/walletbridge/relay"
)

const maxBodySize = 64 * 1024

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, relay.ErrMalformedURI):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, relay.ErrNotPaired):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, approval.ErrUnknownPrompt):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// decodeJSON decodes a size-capped JSON request body. On failure it has
// already written the error response.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, maxSize int64) (T, bool) {
	var v T
	body := http.MaxBytesReader(w, r.Body, maxSize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty request body")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		}
		return v, false
	}
	return v, true
}
