package web

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/tabshelf/internal/errors"
)

// maxBodyBytes caps request bodies. Tab payloads are a few hundred bytes;
// reorders of large groups stay well under this.
const maxBodyBytes = 1 << 20

// writeJSON writes data as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err to its ShelfError status and writes the error envelope.
// INTERNAL details are logged, never sent.
func writeError(w http.ResponseWriter, log *slog.Logger, r *http.Request, err error) {
	sErr, ok := errors.As(err)
	if !ok {
		sErr = errors.NewInternal(err)
	}

	errorObj := map[string]any{
		"code":    sErr.Code,
		"message": sErr.Message,
		"status":  sErr.Status,
	}
	if sErr.Code != errors.ErrInternal && sErr.Details != nil {
		errorObj["details"] = sErr.Details
	}

	if sErr.Status >= 500 {
		log.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", sErr.Code, "error", err)
	}
	writeJSON(w, sErr.Status, map[string]any{"error": errorObj})
}

// decodeBody reads a JSON body into dst. Unknown fields are rejected so a
// misspelled key fails loudly instead of being ignored.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case stderrors.Is(err, io.EOF):
			return errors.NewInvalidRequest("request body is required")
		case stderrors.As(err, &maxErr):
			return errors.NewInvalidRequest(fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		default:
			return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
		}
	}
	return nil
}

// pathPosition parses the {position} URL parameter.
func pathPosition(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "position")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewInvalidRequest(fmt.Sprintf("position must be an integer, got %q", raw))
	}
	return n, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}

// parseBoolParam reports whether a query parameter is "true" or "1".
func parseBoolParam(r *http.Request, name string) bool {
	v := strings.ToLower(r.URL.Query().Get(name))
	return v == "true" || v == "1"
}
