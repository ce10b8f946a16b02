package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deployer-backend/internal/model"
	"deployer-backend/internal/service"
	"deployer-backend/pkg/utils"
)

type SSHHandler struct {
	sshService *service.SSHService
}

func NewSSHHandler(sshService *service.SSHService) *SSHHandler {
	return &SSHHandler{
		sshService: sshService,
	}
}

func (h *SSHHandler) TestConnection(c *gin.Context) {
	var req model.SSHTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	server := req.ServerConfig()
	if err := utils.ValidateHost(server.Host); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := utils.ValidatePort(server.Port); err != nil {
		respondBadRequest(c, err)
		return
	}

	result := h.sshService.TestConnection(c.Request.Context(), server)
	c.JSON(http.StatusOK, result)
}
