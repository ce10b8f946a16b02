package router

import (
	"github.com/gin-gonic/gin"

	"deployer-backend/internal/handler"
)

func RegisterRoutes(r *gin.Engine, sshHandler *handler.SSHHandler, configHandler *handler.ConfigHandler, deployHandler *handler.DeployHandler) {
	api := r.Group("/api")
	{
		groups := api.Group("/groups")
		{
			groups.GET("", configHandler.ListGroups)
			groups.POST("", configHandler.SaveGroup)
			groups.DELETE("/:id", configHandler.DeleteGroup)
		}

		servers := api.Group("/servers")
		{
			servers.GET("", configHandler.ListServers)
			servers.POST("", configHandler.SaveServer)
			servers.DELETE("/:id", configHandler.DeleteServer)
		}

		projects := api.Group("/projects")
		{
			projects.GET("", configHandler.ListProjects)
			projects.POST("", configHandler.SaveProject)
			projects.DELETE("/:id", configHandler.DeleteProject)
			projects.POST("/:id/deploy", deployHandler.Deploy)
			projects.POST("/:id/view-log", deployHandler.ViewLog)
		}

		ssh := api.Group("/ssh")
		{
			ssh.POST("/test", sshHandler.TestConnection)
		}

		runs := api.Group("/runs")
		{
			runs.GET("", deployHandler.ListRuns)
			runs.GET("/:id", deployHandler.GetRun)
			runs.GET("/:id/stream", deployHandler.Stream)
		}
	}
}
