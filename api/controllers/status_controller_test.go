package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shellbox-go/shellbox/share"
	"github.com/shellbox-go/shellbox/tool"
	"github.com/shellbox-go/shellbox/types"
)

// setupRouter creates a test router with the admin endpoints
func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	self := router.Group("/api/self/v1")
	{
		self.GET("/status", UserStatus)
		self.GET("/sessions", UserSessions)
		self.GET("/transfers", UserTransfers)
		self.GET("/transfers/:id", UserTransferByID)
		self.GET("/create-qr-code", GenerateQRCode)
	}

	return router
}

func TestUserStatus(t *testing.T) {
	router := setupRouter()
	SetServerInfo(ServerInfo{
		Transport:  "udp",
		ListenAddr: "0.0.0.0:9000",
		Root:       "/srv/shellbox",
		StartedAt:  time.Now().Add(-time.Minute),
	})
	SetSessionSource(func() []types.SessionInfo {
		return []types.SessionInfo{{ID: "s1", Peer: "10.0.0.1:4000"}}
	})
	defer SetSessionSource(nil)
	tool.CurrentConfig = types.AppConfig{IdleTimeoutSecs: 60, AdminPort: 9022}

	req, _ := http.NewRequest("GET", "/api/self/v1/status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status code 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["transport"] != "udp" {
		t.Errorf("transport = %v", response["transport"])
	}
	if response["listenAddr"] != "0.0.0.0:9000" {
		t.Errorf("listenAddr = %v", response["listenAddr"])
	}
	if response["sessions"] != float64(1) {
		t.Errorf("sessions = %v", response["sessions"])
	}
	if response["running"] != true {
		t.Errorf("running = %v", response["running"])
	}
	if response["idleTimeoutSecs"] != float64(60) {
		t.Errorf("idleTimeoutSecs = %v", response["idleTimeoutSecs"])
	}
}

func TestUserSessions(t *testing.T) {
	router := setupRouter()
	SetSessionSource(func() []types.SessionInfo {
		return []types.SessionInfo{
			{ID: "s1", Peer: "10.0.0.1:4000", Cwd: "/srv/shellbox", DownloadActive: true},
		}
	})
	defer SetSessionSource(nil)

	req, _ := http.NewRequest("GET", "/api/self/v1/sessions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status code 200, got %d", w.Code)
	}

	var response struct {
		Sessions []types.SessionInfo `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(response.Sessions) != 1 || response.Sessions[0].Peer != "10.0.0.1:4000" {
		t.Errorf("sessions = %+v", response.Sessions)
	}
	if !response.Sessions[0].DownloadActive {
		t.Error("download flag lost in the snapshot")
	}
}

// The stream transport installs no session source; the endpoint still answers
// with an empty list.
func TestUserSessionsWithoutSource(t *testing.T) {
	router := setupRouter()
	SetSessionSource(nil)

	req, _ := http.NewRequest("GET", "/api/self/v1/sessions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status code 200, got %d", w.Code)
	}
	var response struct {
		Sessions []types.SessionInfo `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Sessions == nil || len(response.Sessions) != 0 {
		t.Errorf("sessions = %+v, want empty list", response.Sessions)
	}
}

func TestUserTransfers(t *testing.T) {
	router := setupRouter()
	share.RecordTransfer(types.TransferRecord{
		ID: "t1", Direction: "upload", Transport: "udp",
		FileName: "a.bin", Size: 16, Bytes: 16, Peer: "10.0.0.1:4000",
	})

	req, _ := http.NewRequest("GET", "/api/self/v1/transfers", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status code 200, got %d", w.Code)
	}
	var response struct {
		Transfers []types.TransferRecord `json:"transfers"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	found := false
	for _, rec := range response.Transfers {
		if rec.ID == "t1" && rec.FileName == "a.bin" {
			found = true
		}
	}
	if !found {
		t.Errorf("recorded transfer missing from %+v", response.Transfers)
	}
}

func TestUserTransferByID(t *testing.T) {
	router := setupRouter()
	share.RecordTransfer(types.TransferRecord{
		ID: "t2", Direction: "download", Transport: "tcp",
		FileName: "b.bin", Size: 8, Bytes: 8, Peer: "10.0.0.2:4000",
	})

	req, _ := http.NewRequest("GET", "/api/self/v1/transfers/t2", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status code 200, got %d", w.Code)
	}
	var response struct {
		Transfer types.TransferRecord `json:"transfer"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Transfer.ID != "t2" || response.Transfer.FileName != "b.bin" {
		t.Errorf("transfer = %+v", response.Transfer)
	}

	req, _ = http.NewRequest("GET", "/api/self/v1/transfers/no-such-id", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status code 404 for unknown id, got %d", w.Code)
	}
}
