package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/groblegark/formsync/internal/engine"
	"github.com/groblegark/formsync/internal/events"
	"github.com/groblegark/formsync/internal/model"
)

type deployInput struct {
	FormatIDs []string `json:"format_ids"`
}

// handleDeploy handles POST /v1/instances/{id}/deploy.
// Guard failures (missing or mismatched resources) reject the whole batch;
// past the guards, the response is always 200 with per-item outcomes.
func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	instanceID := r.PathValue("id")

	var in deployInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(in.FormatIDs) == 0 {
		writeError(w, http.StatusBadRequest, "format_ids is required")
		return
	}

	result, err := s.deployer.DeployBatch(r.Context(), OwnerFromContext(r.Context()), instanceID, in.FormatIDs)
	if err != nil {
		var notFound *engine.NotFoundError
		var mismatch *engine.ServiceMismatchError
		var ie inputError
		switch {
		case errors.As(err, &notFound):
			writeError(w, http.StatusNotFound, notFound.Error())
		case errors.As(err, &mismatch):
			writeError(w, http.StatusConflict, mismatch.Error())
		case errors.As(err, &ie):
			writeError(w, http.StatusBadRequest, ie.Error())
		default:
			writeError(w, http.StatusInternalServerError, "deploy failed: "+err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListDeployments handles GET /v1/deployments.
func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.DeploymentFilter{
		OwnerID:    OwnerFromContext(r.Context()),
		InstanceID: q.Get("instance_id"),
		Service:    model.ServiceKind(q.Get("service")),
	}
	if filter.Service != "" && !filter.Service.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid service")
		return
	}

	statuses, err := s.store.ListDeployments(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list deployments")
		return
	}

	if statuses == nil {
		statuses = []*model.DeploymentStatus{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"deployments": statuses})
}

// handleListUpdates handles GET /v1/deployments/updates: only entries whose
// format has moved past the deployed version.
func (s *Server) handleListUpdates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.DeploymentFilter{
		OwnerID:         OwnerFromContext(r.Context()),
		InstanceID:      q.Get("instance_id"),
		Service:         model.ServiceKind(q.Get("service")),
		OnlyNeedsUpdate: true,
	}
	if filter.Service != "" && !filter.Service.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid service")
		return
	}

	statuses, err := s.store.ListDeployments(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list updates")
		return
	}

	if statuses == nil {
		statuses = []*model.DeploymentStatus{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"deployments": statuses})
}

// handleGetDeployment handles GET /v1/deployments/{id}.
func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	d, err := s.store.GetDeployment(r.Context(), id, OwnerFromContext(r.Context()))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "deployment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get deployment")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleUntrack handles DELETE /v1/deployments/{id}.
// Untracking only forgets the ledger entry; the remote format stays in
// place on the instance.
func (s *Server) handleUntrack(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := s.store.DeleteDeployment(r.Context(), id, OwnerFromContext(r.Context()))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "deployment not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete deployment")
		return
	}

	s.publish(r.Context(), events.TopicDeploymentRemoved, events.DeploymentRemoved{DeploymentID: id})

	w.WriteHeader(http.StatusNoContent)
}
