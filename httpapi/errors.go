package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"payflow/apierr"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// writeError maps the error taxonomy onto HTTP statuses. Every rejection
// carries the human explanation; clients read retryable instead of parsing
// messages.
func writeError(c *gin.Context, err error) {
	var ae *apierr.Error
	if !errors.As(err, &ae) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorBody{
			Code:      "INTERNAL",
			Message:   "internal error",
			Retryable: true,
		}})
		return
	}

	status := http.StatusInternalServerError
	switch ae.Kind {
	case apierr.KindValidation:
		status = http.StatusBadRequest
		if ae.Code == apierr.CodePaymentNotFound || ae.Code == apierr.CodePayoutNotFound {
			status = http.StatusNotFound
		}
	case apierr.KindConflict:
		status = http.StatusUnprocessableEntity
		if ae.Code == apierr.CodeConcurrentModification {
			status = http.StatusConflict
		}
	case apierr.KindTransient:
		status = http.StatusServiceUnavailable
	case apierr.KindTerminal:
		status = http.StatusConflict
	}

	c.JSON(status, gin.H{"error": errorBody{
		Code:      ae.Code,
		Message:   ae.Message,
		Retryable: ae.Retryable(),
	}})
}
