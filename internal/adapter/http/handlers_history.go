package adapthttp

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"bodycomp/internal/app"
	"bodycomp/internal/history"
)

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	unit := r.URL.Query().Get("unit")
	if unit == "" {
		unit = "kg"
	}
	items, errMsg, err := s.history.Timeline(r.Context(), user.ID, unit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp := map[string]any{"unit": unit, "items": items}
	if errMsg != "" {
		resp["error"] = errMsg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	kind := history.Kind(r.PathValue("kind"))
	if kind != history.KindComposition && kind != history.KindWeight {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown kind %q", kind))
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid id: %w", err))
		return
	}

	err = s.history.Delete(r.Context(), user.ID, kind, id)
	switch {
	case errors.Is(err, app.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (s *Server) handleCompositionsRecent(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit := intQuery(r, "limit", 14)
	items, err := s.records.RecentCompositions(r.Context(), user.ID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
