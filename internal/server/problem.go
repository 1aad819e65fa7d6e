package server

import (
	"encoding/json"
	"net/http"
)

const problemTypeBase = "https://readyrun.dev/problems/"

// Problem is an RFC 7807 Problem Details body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// WriteProblem encodes p with the application/problem+json content type.
func WriteProblem(w http.ResponseWriter, p Problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func writeStatusProblem(w http.ResponseWriter, status int, slug, detail, instance string) {
	WriteProblem(w, Problem{
		Type:     problemTypeBase + slug,
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// BadRequest writes a 400 problem response.
func BadRequest(w http.ResponseWriter, detail, instance string) {
	writeStatusProblem(w, http.StatusBadRequest, "bad-request", detail, instance)
}

// NotFound writes a 404 problem response.
func NotFound(w http.ResponseWriter, detail, instance string) {
	writeStatusProblem(w, http.StatusNotFound, "not-found", detail, instance)
}

// RateLimited writes a 429 problem response.
func RateLimited(w http.ResponseWriter, detail, instance string) {
	writeStatusProblem(w, http.StatusTooManyRequests, "rate-limited", detail, instance)
}

// InternalError writes a 500 problem response.
func InternalError(w http.ResponseWriter, detail, instance string) {
	writeStatusProblem(w, http.StatusInternalServerError, "internal-error", detail, instance)
}
