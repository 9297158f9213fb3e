package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"meetscribe/pkg/config"
	"meetscribe/pkg/store"
)

type Handlers struct {
	cfg      *config.Config
	store    *store.Store
	registry *Registry
}

func NewHandlers(cfg *config.Config, st *store.Store) *Handlers {
	return &Handlers{
		cfg:      cfg,
		store:    st,
		registry: NewRegistry(),
	}
}

// Router wires up the HTTP surface of the server binary.
func (h *Handlers) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/ws", h.StreamHandler)
	router.HandleFunc("/healthz", h.HealthHandler).Methods("GET")
	router.HandleFunc("/transcripts/{id}", h.GetTranscriptHandler).Methods("GET")
	return router
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":       "ok",
		"active_links": h.registry.Count(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (h *Handlers) GetTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	meetingID := vars["id"]

	t, err := h.store.LoadTranscript(meetingID)
	if err != nil {
		if err == store.ErrTranscriptNotFound {
			http.Error(w, "transcript not found", http.StatusNotFound)
			return
		}
		log.Printf("api: load transcript %s: %v", meetingID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(t)
}
