// Package response holds the JSON envelopes shared by every handler.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIError is the error body: a human-readable message plus a stable
// code clients can switch on.
type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope with the given status.
func RespondError(c *gin.Context, status int, code string, err error) {
	e := APIError{Message: "unknown error", Code: code}
	if err != nil {
		e.Message = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: e})
}

// RespondOK writes payload with a 200 status.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
