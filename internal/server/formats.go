package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/groblegark/formsync/internal/events"
	"github.com/groblegark/formsync/internal/idgen"
	"github.com/groblegark/formsync/internal/model"
	"github.com/groblegark/formsync/internal/store"
)

type createFormatInput struct {
	Name                string                `json:"name"`
	Service             model.ServiceKind     `json:"service"`
	IncludeWhenRenaming bool                  `json:"include_when_renaming"`
	Specifications      []model.Specification `json:"specifications"`
}

// handleCreateFormat handles POST /v1/formats.
// New formats always start at version 1.
func (s *Server) handleCreateFormat(w http.ResponseWriter, r *http.Request) {
	var in createFormatInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := idgen.Generate(idgen.FormatPrefix)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate id")
		return
	}

	now := time.Now().UTC()
	format := &model.Format{
		ID:                  id,
		OwnerID:             OwnerFromContext(r.Context()),
		Name:                in.Name,
		Service:             in.Service,
		IncludeWhenRenaming: in.IncludeWhenRenaming,
		Specifications:      in.Specifications,
		Version:             1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := model.ValidateFormat(format); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.CreateFormat(r.Context(), format); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "a format with this name already exists for this service")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create format")
		return
	}

	s.publish(r.Context(), events.TopicFormatCreated, events.FormatCreated{Format: format})

	writeJSON(w, http.StatusCreated, format)
}

// handleListFormats handles GET /v1/formats.
func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.FormatFilter{
		OwnerID: OwnerFromContext(r.Context()),
		Service: model.ServiceKind(q.Get("service")),
		Search:  q.Get("search"),
	}

	if filter.Service != "" && !filter.Service.IsValid() {
		writeError(w, http.StatusBadRequest, "invalid service")
		return
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	formats, total, err := s.store.ListFormats(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list formats")
		return
	}

	// Ensure formats is never null in JSON output.
	if formats == nil {
		formats = []*model.Format{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"formats": formats,
		"total":   total,
	})
}

// handleGetFormat handles GET /v1/formats/{id}.
func (s *Server) handleGetFormat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	format, err := s.store.GetFormat(r.Context(), id, OwnerFromContext(r.Context()))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "format not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get format")
		return
	}

	writeJSON(w, http.StatusOK, format)
}

// handleUpdateFormat handles PATCH /v1/formats/{id}.
// Submitting specifications bumps the version by one even when the content
// is unchanged; name and rename-flag edits never do.
func (s *Server) handleUpdateFormat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var patch model.FormatPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	owner := OwnerFromContext(r.Context())

	// The read and the write share one transaction so two concurrent
	// patches cannot both apply to the same starting version.
	var (
		format *model.Format
		bumped bool
	)
	err := s.store.RunInTransaction(r.Context(), func(tx store.Store) error {
		f, err := tx.GetFormat(r.Context(), id, owner)
		if err != nil {
			return err
		}
		bumped = model.ApplyFormatPatch(f, patch)
		if err := model.ValidateFormat(f); err != nil {
			return err
		}
		if err := tx.UpdateFormat(r.Context(), f); err != nil {
			return err
		}
		format = f
		return nil
	})
	if err != nil {
		var vErr *model.ValidationError
		switch {
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "format not found")
		case errors.As(err, &vErr):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, "a format with this name already exists for this service")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update format")
		}
		return
	}

	s.publish(r.Context(), events.TopicFormatUpdated, events.FormatUpdated{
		Format:        format,
		VersionBumped: bumped,
	})

	writeJSON(w, http.StatusOK, format)
}

// handleDeleteFormat handles DELETE /v1/formats/{id}.
// Deletion is a tombstone: ledger entries keep referencing the format, and
// nothing is removed from any remote instance.
func (s *Server) handleDeleteFormat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := s.store.SoftDeleteFormat(r.Context(), id, OwnerFromContext(r.Context()))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "format not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete format")
		return
	}

	s.publish(r.Context(), events.TopicFormatDeleted, events.FormatDeleted{FormatID: id})

	w.WriteHeader(http.StatusNoContent)
}
