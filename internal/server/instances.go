package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/groblegark/formsync/internal/events"
	"github.com/groblegark/formsync/internal/idgen"
	"github.com/groblegark/formsync/internal/model"
	"github.com/groblegark/formsync/internal/store"
)

type createInstanceInput struct {
	Label   string            `json:"label"`
	URL     string            `json:"url"`
	APIKey  string            `json:"api_key"`
	Service model.ServiceKind `json:"service"`
}

// handleCreateInstance handles POST /v1/instances.
func (s *Server) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	var in createInstanceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := idgen.Generate(idgen.InstancePrefix)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate id")
		return
	}

	now := time.Now().UTC()
	inst := &model.Instance{
		ID:        id,
		OwnerID:   OwnerFromContext(r.Context()),
		Label:     in.Label,
		URL:       in.URL,
		APIKey:    in.APIKey,
		Service:   in.Service,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := model.ValidateInstance(inst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateInstance(r.Context(), inst); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "instance already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create instance")
		return
	}

	s.publish(r.Context(), events.TopicInstanceCreated, events.InstanceCreated{Instance: inst})

	writeJSON(w, http.StatusCreated, redactInstance(inst))
}

// handleListInstances handles GET /v1/instances.
func (s *Server) handleListInstances(w http.ResponseWriter, r *http.Request) {
	instances, err := s.store.ListInstances(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list instances")
		return
	}

	out := make([]*model.Instance, 0, len(instances))
	for _, inst := range instances {
		out = append(out, redactInstance(inst))
	}

	writeJSON(w, http.StatusOK, map[string]any{"instances": out})
}

// handleGetInstance handles GET /v1/instances/{id}.
func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	inst, err := s.store.GetInstance(r.Context(), id, OwnerFromContext(r.Context()))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "instance not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get instance")
		return
	}

	writeJSON(w, http.StatusOK, redactInstance(inst))
}

// handleDeleteInstance handles DELETE /v1/instances/{id}.
// Ledger entries for the instance are removed with it; remote state is
// never touched.
func (s *Server) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := s.store.DeleteInstance(r.Context(), id, OwnerFromContext(r.Context()))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "instance not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete instance")
		return
	}

	s.publish(r.Context(), events.TopicInstanceDeleted, events.InstanceDeleted{InstanceID: id})

	w.WriteHeader(http.StatusNoContent)
}

// redactInstance returns a copy of the instance with the API key blanked.
// Keys go in on create and never come back out.
func redactInstance(inst *model.Instance) *model.Instance {
	out := *inst
	out.APIKey = ""
	return &out
}
