package errors

import (
	"encoding/json"
	"net/http"
)

type HTTPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HandleHTTPError handles http errors
func HandleHTTPError(w http.ResponseWriter, err error) {
	var httpErr *HTTPError
	var badRequest *BadRequestError
	var notFound *NotFoundError
	switch {
	case As(err, &badRequest):
		httpErr = &HTTPError{
			Code:    http.StatusBadRequest,
			Message: badRequest.Error(),
		}
	case As(err, &notFound):
		httpErr = &HTTPError{
			Code:    http.StatusNotFound,
			Message: notFound.Error(),
		}
	default:
		httpErr = &HTTPError{
			Code:    http.StatusInternalServerError,
			Message: "Internal server error",
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErr.Code)
	json.NewEncoder(w).Encode(httpErr)
}
