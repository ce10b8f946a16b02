package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deployer-backend/internal/model"
	applog "deployer-backend/internal/pkg/logger"
	"deployer-backend/internal/store"
	"deployer-backend/pkg/utils"
)

// ConfigHandler serves CRUD for the persisted servers, projects and
// environment groups. Mutations reply with the full updated list.
type ConfigHandler struct {
	store  *store.Store
	logger *applog.Logger
}

func NewConfigHandler(s *store.Store, logger *applog.Logger) *ConfigHandler {
	if logger == nil {
		logger = applog.NewNop()
	}
	return &ConfigHandler{store: s, logger: logger}
}

func (h *ConfigHandler) reply(c *gin.Context, what string, list any, err error) {
	if err != nil {
		h.logger.Error("config store failure", zap.String("kind", what), zap.Error(err))
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ConfigHandler) ListGroups(c *gin.Context) {
	list, err := h.store.Groups()
	h.reply(c, "groups", list, err)
}

func (h *ConfigHandler) SaveGroup(c *gin.Context) {
	var group model.EnvironmentGroup
	if err := c.ShouldBindJSON(&group); err != nil {
		respondBadRequest(c, err)
		return
	}
	if group.Name == "" {
		respondBadRequest(c, utils.NewValidationError("name", group.Name))
		return
	}
	list, err := h.store.SaveGroup(group)
	h.reply(c, "groups", list, err)
}

func (h *ConfigHandler) DeleteGroup(c *gin.Context) {
	list, err := h.store.DeleteGroup(c.Param("id"))
	h.reply(c, "groups", list, err)
}

func (h *ConfigHandler) ListServers(c *gin.Context) {
	list, err := h.store.Servers()
	h.reply(c, "servers", list, err)
}

func (h *ConfigHandler) SaveServer(c *gin.Context) {
	var server model.ServerConfig
	if err := c.ShouldBindJSON(&server); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := utils.ValidateServerConfig(&server); err != nil {
		respondBadRequest(c, err)
		return
	}
	list, err := h.store.SaveServer(server)
	h.reply(c, "servers", list, err)
}

func (h *ConfigHandler) DeleteServer(c *gin.Context) {
	list, err := h.store.DeleteServer(c.Param("id"))
	h.reply(c, "servers", list, err)
}

func (h *ConfigHandler) ListProjects(c *gin.Context) {
	list, err := h.store.Projects()
	h.reply(c, "projects", list, err)
}

func (h *ConfigHandler) SaveProject(c *gin.Context) {
	var project model.DeployConfig
	if err := c.ShouldBindJSON(&project); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := utils.ValidateDeployConfig(&project); err != nil {
		respondBadRequest(c, err)
		return
	}
	list, err := h.store.SaveProject(project)
	h.reply(c, "projects", list, err)
}

func (h *ConfigHandler) DeleteProject(c *gin.Context) {
	list, err := h.store.DeleteProject(c.Param("id"))
	h.reply(c, "projects", list, err)
}
