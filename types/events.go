package types

import "time"

// Event types published to the notify websocket.
const (
	EventSessionCreated   = "session_created"
	EventSessionEvicted   = "session_evicted"
	EventTransferStart    = "transfer_start"
	EventTransferProgress = "transfer_progress"
	EventTransferDone     = "transfer_done"
	EventTransferFailed   = "transfer_failed"
)

// Event represents a server event broadcast to admin websocket clients.
type Event struct {
	Type    string         `json:"type,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// TransferRecord is a completed (or failed) file transfer kept in the
// short-lived history cache for the admin API.
type TransferRecord struct {
	ID          string    `json:"id"`        // transfer uuid
	Direction   string    `json:"direction"` // "upload" or "download"
	Transport   string    `json:"transport"` // "tcp" or "udp"
	FileName    string    `json:"fileName"`
	Size        uint64    `json:"size"`
	Bytes       uint64    `json:"bytes"` // bytes actually moved
	Peer        string    `json:"peer"`
	CompletedAt time.Time `json:"completedAt"`
	Failed      bool      `json:"failed,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// SessionInfo is a read-only snapshot of a live datagram session.
type SessionInfo struct {
	ID             string    `json:"id"`
	Peer           string    `json:"peer"`
	Cwd            string    `json:"cwd"`
	LastActivity   time.Time `json:"lastActivity"`
	UploadActive   bool      `json:"uploadActive"`
	DownloadActive bool      `json:"downloadActive"`
}
