// Package api serves the local-only admin HTTP API: server status, live
// datagram sessions, recent transfers, a QR code of the server address and
// the event websocket. It never touches protocol semantics.
package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/shellbox-go/shellbox/api/controllers"
	"github.com/shellbox-go/shellbox/api/middlewares"
	"github.com/shellbox-go/shellbox/events"
	"github.com/shellbox-go/shellbox/tool"
)

// Server represents the admin HTTP API server.
type Server struct {
	port   int
	server *http.Server
	mu     sync.RWMutex
}

// NewServer creates a new admin API server instance.
func NewServer(port int) *Server {
	return &Server{port: port}
}

func (s *Server) setupRoutes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	self := engine.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/status", controllers.UserStatus)              // Running server description and counters
		self.GET("/sessions", controllers.UserSessions)          // Live datagram sessions
		self.GET("/transfers", controllers.UserTransfers)        // Recently completed transfers
		self.GET("/transfers/:id", controllers.UserTransferByID) // One transfer, by id
		self.GET("/create-qr-code", controllers.GenerateQRCode)  // QR code PNG of the server address
		self.GET("/notify-ws", func(c *gin.Context) {
			_ = events.Default().Attach(c.Writer, c.Request)
		})
	}

	return engine
}

// Start starts the admin HTTP server on the loopback interface.
func (s *Server) Start() error {
	engine := s.setupRoutes()

	s.mu.Lock()
	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler: engine,
	}
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting admin API on http://127.0.0.1:%d", s.port)
	return s.server.ListenAndServe()
}
