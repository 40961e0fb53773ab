package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/stocktrail/stocktrail/pkg/errors"
	"github.com/stocktrail/stocktrail/pkg/response"
	"github.com/stocktrail/stocktrail/pkg/validator"
)

// bindAndValidate binds the JSON body into input and runs struct validation.
// On failure it writes the error response and reports false.
func bindAndValidate[T any](c *gin.Context, input *T) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid request body"))
		return false
	}
	if err := validator.ValidateStruct(input); err != nil {
		response.Error(c, apperrors.NewBadRequest(err.Error()))
		return false
	}
	return true
}
