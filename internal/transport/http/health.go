package http

import "net/http"

type healthResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

// HealthHandler reports liveness for the named service.
func HealthHandler(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Service: service, Status: "ok"})
	}
}
