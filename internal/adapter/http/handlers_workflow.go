package adapthttp

import (
	"errors"
	"fmt"
	"net/http"

	"bodycomp/internal/app"
	"bodycomp/internal/domain"
	"bodycomp/internal/workflow"
)

func (s *Server) handleWorkflowStart(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var body struct {
		Protocol string `json:"protocol"`
		Guest    bool   `json:"guest"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, wf, err := s.workflows.Start(r.Context(), user.ID, body.Protocol, body.Guest)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "state": wf.State()})
}

func (s *Server) handleWorkflowGet(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	wf, err := s.workflows.Get(user.ID, id)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "state": wf.State()})
}

func (s *Server) handleWorkflowDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := s.workflows.Close(user.ID, r.PathValue("id")); err != nil {
		writeWorkflowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleWorkflowAction(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	wf, err := s.workflows.Get(user.ID, id)
	if err != nil {
		writeWorkflowError(w, err)
		return
	}

	var st workflow.State
	switch action := r.PathValue("action"); action {
	case "age":
		var body struct {
			Text string `json:"text"`
		}
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		st = wf.SetAge(body.Text)

	case "site":
		var body struct {
			Index int    `json:"index"`
			Text  string `json:"text"`
		}
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		st, err = wf.SetSite(body.Index, body.Text)

	case "sex":
		var body struct {
			Sex string `json:"sex"`
		}
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sex, perr := domain.ParseSex(body.Sex)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr)
			return
		}
		st = wf.SetSex(sex)

	case "note":
		var body struct {
			Note string `json:"note"`
		}
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		st = wf.SetNote(body.Note)

	case "calculate":
		err = wf.Calculate()
		st = wf.State()

	case "reset":
		st = wf.Reset()

	case "close-result":
		st = wf.CloseResult()

	case "clear-error":
		st = wf.ClearError()

	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown action %q", action))
		return
	}

	if err != nil {
		writeJSON(w, workflowStatus(err), map[string]any{"id": id, "error": err.Error(), "state": st})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "state": st})
}

func workflowStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrWorkflowNotFound), errors.Is(err, workflow.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrIncomplete), errors.Is(err, workflow.ErrCalculation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrSiteIndex):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeWorkflowError(w http.ResponseWriter, err error) {
	writeError(w, workflowStatus(err), err)
}
