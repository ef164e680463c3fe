package file

import (
	"filecatalog/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the catalog under r. Each route passes the access
// gate for its operation; events may be nil when no realtime feed is wired.
func RegisterRoutes(r *gin.RouterGroup, h *Handler, gate *middleware.AccessGate, events gin.HandlerFunc) {
	files := r.Group("/files")
	{
		files.POST("", gate.Require(middleware.OpUpload), h.Upload)
		files.POST("/upload", gate.Require(middleware.OpUpload), h.Upload)
		files.GET("", gate.Require(middleware.OpList), h.List)
		files.GET("/list", gate.Require(middleware.OpList), h.List)
		files.PUT("/reorder", gate.Require(middleware.OpReorder), h.Reorder)

		files.GET("/public/:filename", gate.Require(middleware.OpStream), h.Stream)
		files.HEAD("/public/:filename", gate.Require(middleware.OpStream), h.Stream)

		files.POST("/:id/shareable-link", gate.Require(middleware.OpShareLink), h.ShareableLink)
		files.POST("/:id/increment-view", gate.Require(middleware.OpViewByID), h.IncrementViewByID)
		files.POST("/increment-view/:filename", gate.Require(middleware.OpViewByFilename), h.IncrementViewByFilename)
		files.GET("/:id", gate.Require(middleware.OpList), h.Get)

		if events != nil {
			files.GET("/events", gate.Require(middleware.OpEvents), events)
		}
	}
}
