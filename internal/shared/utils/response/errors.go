package response

import (
	"errors"

	"parkly/internal/shared/apperrors"
	"parkly/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the errors payload for classified failures
type ErrorBody struct {
	Code    apperrors.Kind `json:"code"`
	Details interface{}    `json:"details,omitempty"`
}

// RespondError maps err onto the envelope. Unclassified errors are logged and hidden.
func RespondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		logger.GetDefault().LogHTTPError(c, err, 500)
		RespondJSON(c, "error", 500, "Internal server error", nil, ErrorBody{Code: apperrors.KindInternal})
		return
	}

	status := apperrors.HTTPStatus(appErr.Kind)
	if status >= 500 {
		logger.GetDefault().LogHTTPError(c, err, status)
	}
	_ = c.Error(err)
	RespondJSON(c, "error", status, appErr.Message, nil, ErrorBody{Code: appErr.Kind, Details: appErr.Details})
}

// RespondBindingError reports a request that failed gin binding
func RespondBindingError(c *gin.Context, err error) {
	RespondError(c, apperrors.FromBinding(err))
}
