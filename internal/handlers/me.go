package handlers

import (
	"net/http"

	"github.com/benvon/resale-hub/internal/request"
	"github.com/gorilla/mux"
)

// MeHandler returns the authenticated operator
type MeHandler struct{}

// RegisterRoutes registers the operator route; the router should carry the /me prefix
func (h MeHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetMe).Methods("GET")
}

// GetMe returns current operator information
func (MeHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	op := request.OperatorFromContext(r)
	if op == nil {
		respondJSONError(w, http.StatusUnauthorized, "unauthorized", "Operator not found in context")
		return
	}
	respondJSON(w, http.StatusOK, op)
}
