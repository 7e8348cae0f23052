// Package httpapi exposes the social API over JSON REST. It is a thin
// translation layer: handlers invoke the entity collections and map the
// model error taxonomy onto status codes. Ownership checks (actor vs
// resource owner) live here; the model layer has no notion of a current
// user.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/instafeed/internal/odm"
)

// envelope is the uniform response shape: {"status": ..., "data": ...}.
type envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

func respond(w http.ResponseWriter, code int, status string, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(envelope{Status: status, Data: data})
}

func ok(w http.ResponseWriter, data any) {
	respond(w, http.StatusOK, "ok", data)
}

func notFound(w http.ResponseWriter, data any) {
	respond(w, http.StatusNotFound, "error", data)
}

func unprocessable(w http.ResponseWriter, data any) {
	respond(w, http.StatusUnprocessableEntity, "error", data)
}

func unauthorized(w http.ResponseWriter) {
	respond(w, http.StatusUnauthorized, "error", nil)
}

func badRequest(w http.ResponseWriter, data any) {
	respond(w, http.StatusBadRequest, "error", data)
}

// writeModelError maps the model error taxonomy onto transport responses:
// validation and storage rejections are 422, a missing document is 404.
func writeModelError(w http.ResponseWriter, err error) {
	var verr *odm.ValidationError
	if errors.As(err, &verr) {
		unprocessable(w, map[string]any{"name": "ValidationError", "errors": verr.Fields})
		return
	}

	if errors.Is(err, odm.ErrNotFound) {
		notFound(w, map[string]any{"name": "NotFoundError"})
		return
	}

	var derr *odm.DatabaseError
	if errors.As(err, &derr) {
		unprocessable(w, map[string]any{"name": "DatabaseError", "errors": derr.Err.Error()})
		return
	}

	respond(w, http.StatusInternalServerError, "error", nil)
}
