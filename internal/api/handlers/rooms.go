// rooms.go — обработчики комнат.
// GET /api/v1/rooms — список комнат с жильцами (публичный)
// GET /api/v1/rooms/{roomNumber} — карточка комнаты (публичный)
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListRooms — GET /api/v1/rooms.
// Все комнаты с раскрытыми карточками студентов, по возрастанию номера.
func (h *APIHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	views, err := h.rooms.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения списка комнат")
		return
	}

	out := make([]roomJSON, 0, len(views))
	for _, v := range views {
		out = append(out, mapRoom(v))
	}
	writeJSON(w, http.StatusOK, struct {
		Rooms []roomJSON `json:"rooms"`
	}{Rooms: out})
}

// roomDetailJSON — карточка комнаты с текущим запросом ночного пропуска.
type roomDetailJSON struct {
	roomJSON
	NightPassRequest *nightPassJSON `json:"nightPassRequest,omitempty"`
}

// GetRoom — GET /api/v1/rooms/{roomNumber}.
// Карточка комнаты; запрос ночного пропуска включается, если есть.
func (h *APIHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "roomNumber")

	detail, err := h.rooms.Get(r.Context(), number)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка получения комнаты")
		return
	}

	room := roomDetailJSON{roomJSON: mapRoom(&detail.RoomView)}
	if detail.NightPassRequest != nil {
		np := mapNightPass(detail.NightPassRequest)
		room.NightPassRequest = &np
	}
	writeJSON(w, http.StatusOK, struct {
		Room roomDetailJSON `json:"room"`
	}{Room: room})
}
