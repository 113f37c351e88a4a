package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/eventhub/internal/common"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{common.ErrorValidation, http.StatusBadRequest, "validation_error"},
	{common.ErrorUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{common.ErrorForbidden, http.StatusForbidden, "forbidden"},
	{common.ErrorNotFound, http.StatusNotFound, "not_found"},
	{common.ErrorConflict, http.StatusConflict, "conflict"},
	{common.ErrorCapacity, http.StatusUnprocessableEntity, "no_spots"},
	{common.ErrorProfileIncomplete, http.StatusUnprocessableEntity, "profile_incomplete"},
	{common.ErrorVerification, http.StatusUnprocessableEntity, "verification_failed"},
}

// statusFor maps an error kind to its HTTP status and machine code.
func statusFor(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func abortWithError(c *gin.Context, err error) {
	status, code := statusFor(err)

	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = common.ErrorInternal.Error()
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{
		Detail:    detail,
		Code:      code,
		RequestID: c.GetString(requestIDKey),
	})
}

// badRequest reports a malformed body or query string.
func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Detail:    msg,
		Code:      "bad_request",
		RequestID: c.GetString(requestIDKey),
	})
}
