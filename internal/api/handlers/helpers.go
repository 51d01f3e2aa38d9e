// Package handlers implements the three documented gallery endpoints
// (spec.md §6) on top of C3/C4/C6.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/galleryhost/gallery/internal/galleryerr"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RespondJSON writes data as a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Error().Err(err).Msg("failed to encode JSON response")
		}
	}
}

// RespondError writes an ErrorResponse with the given status.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorResponse{Error: message})
}

// RespondGalleryError maps a galleryerr.Kind to the HTTP status spec.md §7
// prescribes: NotFound -> 404, AccessDenied -> 503 with a Retry-After
// hint, everything else -> 500.
func RespondGalleryError(w http.ResponseWriter, op string, err error) {
	switch {
	case galleryerr.Is(err, galleryerr.KindNotFound):
		RespondError(w, http.StatusNotFound, "not found")
	case galleryerr.Is(err, galleryerr.KindAccessDenied):
		w.Header().Set("Retry-After", "5")
		RespondError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry shortly")
	default:
		log.Error().Err(err).Str("op", op).Msg("request failed")
		RespondError(w, http.StatusInternalServerError, "internal error")
	}
}

// ParseSort extracts the sort query parameter (spec.md §6, "sort ∈
// {0,1,2}"), defaulting to 0 (natural name) on anything invalid or
// missing.
func ParseSort(r *http.Request) int {
	v := r.URL.Query().Get("sort")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 || n > 2 {
		return 0
	}
	return n
}

// ParsePage extracts the 1-based page query parameter, defaulting to 1
// on anything invalid, missing, or less than 1.
func ParsePage(r *http.Request) int {
	v := r.URL.Query().Get("page")
	if v == "" {
		return 1
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ParseShowDuplicates extracts the show_duplicates query parameter.
// Absent or unrecognized values default to false (spec.md §4.6's
// default listing hides tree-wide duplicate content).
func ParseShowDuplicates(r *http.Request) bool {
	v := r.URL.Query().Get("show_duplicates")
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false
	}
	return b
}
