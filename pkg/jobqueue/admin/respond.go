package admin

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/jobqueue/pkg/jobqueue"
	"github.com/dmitrymomot/jobqueue/pkg/logger"
	"github.com/dmitrymomot/jobqueue/pkg/validator"
)

type errorView struct {
	Error  string                     `json:"error"`
	Fields validator.ValidationErrors `json:"fields,omitempty"`
}

func (a *API) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.DebugContext(r.Context(), "write admin response", logger.Error(err))
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	view := errorView{Error: err.Error()}

	switch {
	case errors.Is(err, jobqueue.ErrEnvelopeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNoFailureStore):
		status = http.StatusNotImplemented
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidFilter):
		status = http.StatusBadRequest
		view.Fields = validator.ExtractValidationErrors(err)
	}

	if status == http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), "admin request failed",
			logger.Error(err), "method", r.Method, "path", r.URL.Path)
		view.Error = http.StatusText(status)
	}
	a.writeJSON(w, r, status, view)
}
