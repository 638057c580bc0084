package server

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shellbox-go/shellbox/tool"
	"github.com/shellbox-go/shellbox/types"
)

// DefaultIdleTimeout is the datagram session eviction threshold.
const DefaultIdleTimeout = 300 * time.Second

// UploadState tracks a chunked upload in progress.
type UploadState struct {
	File     *os.File
	Path     string
	Expected uint64
	Received uint64
}

// DownloadState tracks a chunked download in progress.
type DownloadState struct {
	File       *os.File
	Name       string
	Size       uint64
	SentChunks uint32
}

// Session is the server-side record of one datagram client: its navigation
// state and any in-flight transfers. The datagram transport has no connection
// concept, so this is the only place that state can live.
type Session struct {
	ID           string // uuid, for logs and events
	Key          string // client network identity (ip:port)
	Cwd          string
	LastActivity time.Time
	Upload       *UploadState
	Download     *DownloadState
}

// CloseTransfers closes any open transfer handles and clears both states.
func (s *Session) CloseTransfers() {
	if s.Upload != nil {
		_ = s.Upload.File.Close()
		s.Upload = nil
	}
	if s.Download != nil {
		_ = s.Download.File.Close()
		s.Download = nil
	}
}

// Store owns the client-identity to session table for the datagram transport.
// The dispatch loop is the only writer, but the admin API snapshots sessions
// from another goroutine, so every field Snapshot reads is written only under
// the store mutex, via SetCwd, SetUpload and SetDownload.
type Store struct {
	mu       sync.RWMutex
	root     string
	idle     time.Duration
	sessions map[string]*Session
}

func NewStore(root string, idle time.Duration) *Store {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Store{
		root:     root,
		idle:     idle,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for key, creating it at the root directory
// when the identity has not been seen (or was evicted). The second return
// value reports whether a new session was created.
func (st *Store) GetOrCreate(key string, now time.Time) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if sess, ok := st.sessions[key]; ok {
		return sess, false
	}
	sess := &Session{
		ID:           uuid.NewString(),
		Key:          key,
		Cwd:          st.root,
		LastActivity: now,
	}
	st.sessions[key] = sess
	return sess, true
}

// Touch updates the session's activity timestamp.
func (st *Store) Touch(sess *Session, now time.Time) {
	st.mu.Lock()
	sess.LastActivity = now
	st.mu.Unlock()
}

// SetCwd records a directory change.
func (st *Store) SetCwd(sess *Session, cwd string) {
	st.mu.Lock()
	sess.Cwd = cwd
	st.mu.Unlock()
}

// SetUpload installs or clears the session's upload state.
func (st *Store) SetUpload(sess *Session, up *UploadState) {
	st.mu.Lock()
	sess.Upload = up
	st.mu.Unlock()
}

// SetDownload installs or clears the session's download state.
func (st *Store) SetDownload(sess *Session, down *DownloadState) {
	st.mu.Lock()
	sess.Download = down
	st.mu.Unlock()
}

// Sweep removes every session idle longer than the threshold, closing any
// in-flight transfer handles, and returns the evicted sessions. Eviction is a
// pure function of the table, now and the threshold, so tests can drive it
// with a fake clock.
func (st *Store) Sweep(now time.Time) []*Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	var evicted []*Session
	for key, sess := range st.sessions {
		if now.Sub(sess.LastActivity) < st.idle {
			continue
		}
		if sess.Upload != nil || sess.Download != nil {
			tool.DefaultLogger.Warnf("Evicting session %s with transfer in flight, state discarded", sess.ID)
		}
		sess.CloseTransfers()
		delete(st.sessions, key)
		evicted = append(evicted, sess)
	}
	return evicted
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Snapshot returns read-only session info for the admin API.
func (st *Store) Snapshot() []types.SessionInfo {
	st.mu.RLock()
	defer st.mu.RUnlock()
	infos := make([]types.SessionInfo, 0, len(st.sessions))
	for _, sess := range st.sessions {
		infos = append(infos, types.SessionInfo{
			ID:             sess.ID,
			Peer:           sess.Key,
			Cwd:            sess.Cwd,
			LastActivity:   sess.LastActivity,
			UploadActive:   sess.Upload != nil,
			DownloadActive: sess.Download != nil,
		})
	}
	return infos
}
