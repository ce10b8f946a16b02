package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"deployer-backend/internal/model"
	applog "deployer-backend/internal/pkg/logger"
	"deployer-backend/internal/service"
	"deployer-backend/internal/store"
	"deployer-backend/pkg/utils"
)

const wsWriteTimeout = 10 * time.Second

// RunService starts runs and exposes their state and event streams.
type RunService interface {
	StartDeploy(projectID string) (string, error)
	StartViewLog(projectID string) (string, error)
	Run(id string) (service.Run, error)
	Runs() []service.Run
	Subscribe(id string) ([]model.LogEvent, <-chan model.LogEvent, func(), error)
}

type DeployHandler struct {
	deployService RunService
	upgrader      websocket.Upgrader
	logger        *applog.Logger
}

// NewDeployHandler builds the run endpoints. Websocket upgrades are
// accepted from allowedOrigins, or from any origin when it contains "*".
func NewDeployHandler(deployService RunService, allowedOrigins []string, logger *applog.Logger) *DeployHandler {
	if logger == nil {
		logger = applog.NewNop()
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &DeployHandler{
		deployService: deployService,
		logger:        logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

func (h *DeployHandler) Deploy(c *gin.Context) {
	h.start(c, h.deployService.StartDeploy, "Deployment started")
}

func (h *DeployHandler) ViewLog(c *gin.Context) {
	h.start(c, h.deployService.StartViewLog, "Log viewing started")
}

func (h *DeployHandler) start(c *gin.Context, fn func(string) (string, error), msg string) {
	projectID := c.Param("id")
	runID, err := fn(projectID)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		respondError(c, http.StatusConflict, utils.NewRunConflictError(projectID))
		return
	case errors.Is(err, store.ErrNotFound):
		respondError(c, http.StatusNotFound, utils.NewNotFoundError("project or server", projectID))
		return
	case err != nil:
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusAccepted, model.DeployResponse{
		Success: true,
		Message: msg,
		RunID:   runID,
	})
}

func (h *DeployHandler) ListRuns(c *gin.Context) {
	c.JSON(http.StatusOK, h.deployService.Runs())
}

func (h *DeployHandler) GetRun(c *gin.Context) {
	run, err := h.deployService.Run(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, utils.NewNotFoundError("run", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, run)
}

// Stream replays a run's log events over a websocket, one JSON text frame
// per event, then closes normally once the run has finished. A subscriber
// dropped for falling behind is closed with CloseTryAgainLater instead.
func (h *DeployHandler) Stream(c *gin.Context) {
	runID := c.Param("id")
	backlog, live, cancel, err := h.deployService.Subscribe(runID)
	if err != nil {
		respondError(c, http.StatusNotFound, utils.NewNotFoundError("run", runID))
		return
	}
	defer cancel()

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("run", runID), zap.Error(err))
		return
	}
	defer ws.Close()

	// Drain client frames so a close from the browser is noticed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func(ev model.LogEvent) bool {
		_ = ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := ws.WriteJSON(ev); err != nil {
			h.logger.Debug("websocket write failed", zap.String("run", runID), zap.Error(err))
			return false
		}
		return true
	}

	for _, ev := range backlog {
		if !send(ev) {
			return
		}
	}
	for {
		select {
		case ev, ok := <-live:
			if !ok {
				h.closeStream(ws, runID)
				return
			}
			if !send(ev) {
				return
			}
		case <-gone:
			return
		}
	}
}

func (h *DeployHandler) closeStream(ws *websocket.Conn, runID string) {
	code, text := websocket.CloseNormalClosure, "run finished"
	if run, err := h.deployService.Run(runID); err == nil && run.Status == service.RunRunning {
		h.logger.Warn("websocket subscriber fell behind", zap.String("run", runID))
		code, text = websocket.CloseTryAgainLater, "subscriber fell behind"
	}
	msg := websocket.FormatCloseMessage(code, text)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
}
