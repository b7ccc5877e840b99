// seed.go — обработчик provisioning демо-данных.
// GET /api/v1/init — приведение хранилища к демонстрационному состоянию (публичный)
package handlers

import (
	"net/http"

	"github.com/hostelms/key-module/internal/service"
)

// InitDemoData — GET /api/v1/init.
// Идемпотентно заводит демонстрационные данные и возвращает сводку.
func (h *APIHandler) InitDemoData(w http.ResponseWriter, r *http.Request) {
	summary, err := h.seed.Provision(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка provisioning демонстрационных данных")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool                `json:"success"`
		Message string              `json:"message"`
		Summary *service.SeedSummary `json:"summary"`
	}{
		Success: true,
		Message: "Демонстрационные данные заведены",
		Summary: summary,
	})
}
