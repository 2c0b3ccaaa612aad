package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mkravets/txn-webhooks/internal/usecases/dtos"
)

// HealthHandler reports process liveness. Deliberately has no store or
// dispatcher dependency.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dtos.HealthResponse{
		Status:      "HEALTHY",
		CurrentTime: time.Now().UTC(),
	})
}
