package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"deployer-backend/internal/model"
	"deployer-backend/pkg/utils"
)

func respondError(c *gin.Context, status int, err error) {
	var apiErr *utils.APIError
	if !errors.As(err, &apiErr) {
		apiErr = utils.NewSystemError(err)
	}
	c.JSON(status, model.ErrorResponse{
		Success: false,
		Message: apiErr.Message,
		Code:    apiErr.Code,
		Details: apiErr.Details,
	})
}

func respondBadRequest(c *gin.Context, err error) {
	var apiErr *utils.APIError
	if errors.As(err, &apiErr) {
		respondError(c, http.StatusBadRequest, apiErr)
		return
	}
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Success: false,
		Message: "invalid request payload",
		Code:    3000,
		Details: err.Error(),
	})
}
