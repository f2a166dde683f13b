package ui

import (
	"log"

	"github.com/gin-gonic/gin"

	"gridprep/app"
	"gridprep/internal/config"
	"gridprep/internal/events"
)

// Server is the HTTP surface of the upload wizard: a JSON API the dialog
// frontend drives, plus an SSE stream for flow events.
type Server struct {
	router *gin.Engine
	wizard *app.WizardService
	hub    *events.Hub
}

// NewServer creates the server and registers all routes.
func NewServer(cfg *config.Config, wizard *app.WizardService, hub *events.Hub) *Server {
	gin.SetMode(cfg.Server.GinMode)

	s := &Server{
		router: gin.Default(),
		wizard: wizard,
		hub:    hub,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/api/events", s.hub.HandleSSE)
	s.router.GET("/api/strategies", s.handleListStrategies)

	api := s.router.Group("/api/wizard")
	{
		api.POST("/sessions", s.handleCreateSession)
		api.GET("/sessions/:id", s.handleGetSession)
		api.POST("/sessions/:id/resume", s.handleResumeSession)
		api.DELETE("/sessions/:id", s.handleEndSession)

		api.POST("/sessions/:id/next", s.handleNextStage)
		api.POST("/sessions/:id/back", s.handlePreviousStage)
		api.POST("/sessions/:id/jump", s.handleJumpToStage)
		api.POST("/sessions/:id/restart", s.handleRestartFlow)
		api.PUT("/sessions/:id/cursor", s.handleSetStageCursor)
		api.GET("/sessions/:id/stage-file", s.handleCurrentStageFile)
		api.POST("/sessions/:id/stage-file/advance", s.handleAdvanceStageFile)
		api.POST("/sessions/:id/stage-file/retreat", s.handleRetreatStageFile)

		api.POST("/sessions/:id/files", s.handleUploadFiles)
		api.DELETE("/sessions/:id/files/:fileID", s.handleRemoveFile)
		api.PUT("/sessions/:id/files/:fileID/sheets", s.handleSelectSheets)
		api.POST("/sessions/:id/materialize", s.handleMaterializeSheets)

		api.GET("/sessions/:id/files/:fileID/preview", s.handlePreview)
		api.POST("/sessions/:id/files/:fileID/header", s.handleConfirmHeader)
		api.PUT("/sessions/:id/files/:fileID/columns", s.handleSetColumnNameEdits)
		api.PUT("/sessions/:id/files/:fileID/types", s.handleSetDataTypes)
		api.PUT("/sessions/:id/files/:fileID/missing-values", s.handleSetMissingValues)
		api.GET("/sessions/:id/files/:fileID/note", s.handleGetFileNote)
		api.PUT("/sessions/:id/files/:fileID/note", s.handleSetFileNote)

		api.GET("/sessions/:id/metadata", s.handlePrefetchMetadata)
		api.GET("/sessions/:id/files/:fileID/metadata", s.handleFileMetadata)
		api.GET("/sessions/:id/files/:fileID/validate", s.handleValidateFile)
		api.GET("/sessions/:id/files/:fileID/datetime", s.handleDetectDatetime)
	}
}

// Run starts the server on the configured port.
func (s *Server) Run(port string) error {
	log.Printf("[Server] Listening on :%s", port)
	return s.router.Run(":" + port)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
