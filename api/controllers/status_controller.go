package controllers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shellbox-go/shellbox/events"
	"github.com/shellbox-go/shellbox/share"
	"github.com/shellbox-go/shellbox/tool"
	"github.com/shellbox-go/shellbox/types"
)

// ServerInfo describes the running transport server for the status endpoint.
type ServerInfo struct {
	Transport  string    `json:"transport"`
	ListenAddr string    `json:"listenAddr"`
	Root       string    `json:"root"`
	StartedAt  time.Time `json:"startedAt"`
}

var (
	statusMu      sync.RWMutex
	serverInfo    ServerInfo
	sessionSource func() []types.SessionInfo
)

// SetServerInfo records the transport server description shown by UserStatus.
func SetServerInfo(info ServerInfo) {
	statusMu.Lock()
	serverInfo = info
	statusMu.Unlock()
}

// SetSessionSource installs the live-session snapshot provider. Only the
// datagram transport has stored sessions; the stream transport leaves this
// unset.
func SetSessionSource(f func() []types.SessionInfo) {
	statusMu.Lock()
	sessionSource = f
	statusMu.Unlock()
}

// UserStatus reports the running server and its counters.
func UserStatus(c *gin.Context) {
	statusMu.RLock()
	info := serverInfo
	source := sessionSource
	statusMu.RUnlock()

	sessionCount := 0
	if source != nil {
		sessionCount = len(source())
	}
	cfg := tool.GetCurrentConfig()
	c.JSON(http.StatusOK, gin.H{
		"running":         true,
		"transport":       info.Transport,
		"listenAddr":      info.ListenAddr,
		"root":            info.Root,
		"startedAt":       info.StartedAt,
		"uptimeSeconds":   int(time.Since(info.StartedAt).Seconds()),
		"sessions":        sessionCount,
		"wsClients":       events.Default().ClientCount(),
		"idleTimeoutSecs": cfg.IdleTimeoutSecs,
		"adminPort":       cfg.AdminPort,
	})
}

// UserSessions lists live datagram sessions.
func UserSessions(c *gin.Context) {
	statusMu.RLock()
	source := sessionSource
	statusMu.RUnlock()

	sessions := []types.SessionInfo{}
	if source != nil {
		sessions = source()
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// UserTransfers lists recently completed transfers.
func UserTransfers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transfers": share.ListTransfers()})
}

// UserTransferByID returns one transfer record, or 404 once it has aged out
// of the history cache.
func UserTransferByID(c *gin.Context) {
	rec, ok := share.GetTransfer(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transfer not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfer": rec})
}
