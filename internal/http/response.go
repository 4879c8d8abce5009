package http

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/render"
	"github.com/robertarktes/gatherly/internal/domain"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
	Missing []string          `json:"missing,omitempty"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: msg})
}

// respondDomainError maps domain errors onto status codes. Anything it does
// not recognise is logged and reported as a 500 without detail.
func (h *Handlers) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	var incompleteErr *domain.IncompleteDraftError

	switch {
	case errors.As(err, &validationErr):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{Error: "validation failed", Fields: validationErr.Fields})
	case errors.As(err, &incompleteErr):
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ErrorResponse{Error: domain.ErrIncompleteDraft.Error(), Missing: incompleteErr.Missing})
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrDuplicateSeat),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrSubmitInProgress),
		errors.Is(err, domain.ErrDraftNotStarted),
		errors.Is(err, domain.ErrConflict):
		respondError(w, r, http.StatusConflict, rootMessage(err))
	case errors.Is(err, domain.ErrPersistence):
		requestLogger(r, h.logger).Error("booking backend failure: ", err)
		respondError(w, r, http.StatusBadGateway, "booking could not be saved, please retry")
	default:
		requestLogger(r, h.logger).Error("unhandled error: ", err)
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// rootMessage is the message of the sentinel the error was built from.
func rootMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrDuplicateSeat,
		domain.ErrCapacityExceeded,
		domain.ErrSubmitInProgress,
		domain.ErrDraftNotStarted,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
