package v1

import (
	"context"
	"errors"
	"net/http"

	"skincare-client/internal/domain"
	"skincare-client/pkg/logger"
	"skincare-client/pkg/utils"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor maps store errors to gateway status codes.
func statusFor(err error) int {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoAddressSelected),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStockIssues),
		errors.Is(err, domain.ErrUpdateInProgress),
		errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransport),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	}

	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status
	}
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: domain.UserMessage(err)}
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		body.Fields = vErr.Fields
	}
	if status >= 500 {
		logger.WithContext(r.Context()).Error().Err(err).Msg("gateway request failed")
	}
	utils.WriteJSON(w, status, body)
}

func writeOK(w http.ResponseWriter, data interface{}) {
	utils.WriteJSON(w, http.StatusOK, domain.Response{Success: true, Data: data})
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := utils.ParseID(r.PathValue(name))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	if err := utils.DecodeJSON(r, out); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
