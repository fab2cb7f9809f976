package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/consult-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(kind, message string) *Response {
	return &Response{
		Status:  "error",
		Kind:    kind,
		Message: message,
	}
}

// RespondError writes an error with its stable kind and mapped status.
func RespondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), NewErrorResponse(string(apperrors.KindOf(err)), err.Error()))
}
