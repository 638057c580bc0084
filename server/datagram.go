package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shellbox-go/shellbox/events"
	"github.com/shellbox-go/shellbox/protocol"
	"github.com/shellbox-go/shellbox/share"
	"github.com/shellbox-go/shellbox/tool"
	"github.com/shellbox-go/shellbox/types"
)

// DatagramServer serves the protocol over UDP. Datagrams from many client
// identities interleave on one socket; the session store is the only
// multiplexing. Each datagram is handled to completion before the next is
// read, on a single sequential path.
type DatagramServer struct {
	Addr  string
	Root  string
	Store *Store

	handler *Handler
	now     func() time.Time

	mu   sync.Mutex
	conn *net.UDPConn
}

func NewDatagramServer(addr, root string, store *Store) *DatagramServer {
	root = filepath.Clean(root)
	return &DatagramServer{
		Addr:    addr,
		Root:    root,
		Store:   store,
		handler: NewHandler(root),
		now:     time.Now,
	}
}

// ListenAndServe binds the socket and runs the dispatch loop until the
// socket is closed.
func (s *DatagramServer) ListenAndServe() error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer conn.Close()

	tool.DefaultLogger.Infof("Datagram server listening on %s (root: %s)", conn.LocalAddr(), s.Root)

	buf := make([]byte, protocol.MaxDatagramSize)
	for {
		// Idle sessions are swept once per inbound-datagram iteration, not on
		// a separate timer.
		for _, sess := range s.Store.Sweep(s.now()) {
			tool.DefaultLogger.Infof("Session %s (%s) evicted after idle timeout", sess.ID, sess.Key)
			events.Publish(&types.Event{
				Type:    types.EventSessionEvicted,
				Message: fmt.Sprintf("session for %s evicted", sess.Key),
				Data:    map[string]any{"id": sess.ID, "peer": sess.Key},
			})
		}

		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			tool.DefaultLogger.Errorf("Receive error: %v", err)
			continue
		}
		s.handlePacket(conn, raddr, buf[:n])
	}
}

// LocalAddr returns the bound socket address, once listening.
func (s *DatagramServer) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Close stops the dispatch loop.
func (s *DatagramServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *DatagramServer) handlePacket(conn *net.UDPConn, raddr *net.UDPAddr, data []byte) {
	req, err := protocol.DecodeRequest(data)
	if err != nil {
		// Malformed datagram: answer the sender without touching any session.
		tool.DefaultLogger.Warnf("Decode error from %s: %v", raddr, err)
		s.send(conn, raddr, protocol.ErrorResponse{Message: fmt.Sprintf("invalid request: %v", err)})
		return
	}

	now := s.now()
	sess, created := s.Store.GetOrCreate(raddr.String(), now)
	if created {
		tool.DefaultLogger.Infof("New session %s from %s", sess.ID, raddr)
		events.Publish(&types.Event{
			Type:    types.EventSessionCreated,
			Message: fmt.Sprintf("session for %s created", sess.Key),
			Data:    map[string]any{"id": sess.ID, "peer": sess.Key},
		})
	}
	s.Store.Touch(sess, now)

	var resp protocol.Response
	switch r := req.(type) {
	case protocol.UploadRequest:
		resp = s.startUpload(sess, r)
	case protocol.UploadChunkRequest:
		resp = s.uploadChunk(sess, r)
	case protocol.DownloadRequest:
		resp = s.startDownload(sess, r)
	case protocol.DownloadChunkRequest:
		resp = s.downloadChunk(sess, r)
	default:
		var cwd string
		cwd, resp = s.handler.Handle(sess.Cwd, req)
		s.Store.SetCwd(sess, cwd)
	}
	s.send(conn, raddr, resp)
}

// send encodes resp and writes it to raddr as one datagram. A response that
// does not fit the payload ceiling is replaced by an Error that does.
func (s *DatagramServer) send(conn *net.UDPConn, raddr *net.UDPAddr, resp protocol.Response) {
	payload, err := protocol.EncodeResponse(resp)
	if err != nil {
		tool.DefaultLogger.Errorf("Encode error: %v", err)
		payload, err = protocol.EncodeResponse(protocol.ErrorResponse{Message: fmt.Sprintf("encode error: %v", err)})
		if err != nil {
			return
		}
	}
	if len(payload) > protocol.MaxDatagramPayload {
		payload, err = protocol.EncodeResponse(protocol.ErrorResponse{Message: "response too large for datagram"})
		if err != nil {
			return
		}
	}
	if _, err := conn.WriteToUDP(payload, raddr); err != nil {
		tool.DefaultLogger.Errorf("Send error to %s: %v", raddr, err)
	}
}

func (s *DatagramServer) startUpload(sess *Session, r protocol.UploadRequest) protocol.Response {
	dest := uploadDest(sess.Cwd, r.DstPath, r.FileName)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return protocol.ErrorResponse{Message: fmt.Sprintf("cannot create file: %v", err)}
	}
	f, err := os.Create(dest)
	if err != nil {
		return protocol.ErrorResponse{Message: fmt.Sprintf("cannot create file: %v", err)}
	}

	// Replacing an unfinished upload discards it; the old handle must not leak.
	if sess.Upload != nil {
		_ = sess.Upload.File.Close()
	}
	s.Store.SetUpload(sess, &UploadState{
		File:     f,
		Path:     dest,
		Expected: r.Size,
	})
	tool.DefaultLogger.Infof("Starting upload: %s (%d bytes) from %s", r.FileName, r.Size, sess.Key)
	events.Publish(&types.Event{
		Type:    types.EventTransferStart,
		Message: fmt.Sprintf("upload of %s started", r.FileName),
		Data:    map[string]any{"session": sess.ID, "fileName": r.FileName, "size": r.Size},
	})
	return protocol.OkResponse{}
}

func (s *DatagramServer) uploadChunk(sess *Session, r protocol.UploadChunkRequest) protocol.Response {
	up := sess.Upload
	if up == nil {
		return protocol.ErrorResponse{Message: "no active upload session"}
	}

	if _, err := up.File.Write(r.Data); err != nil {
		_ = up.File.Close()
		s.Store.SetUpload(sess, nil)
		tool.DefaultLogger.Errorf("Write error on %s: %v", up.Path, err)
		return protocol.ErrorResponse{Message: fmt.Sprintf("write error: %v", err)}
	}
	up.Received += uint64(len(r.Data))
	tool.DefaultLogger.Debugf("Received chunk %d (%d bytes, total: %d/%d)", r.ChunkID, len(r.Data), up.Received, up.Expected)
	events.Publish(&types.Event{
		Type: types.EventTransferProgress,
		Data: map[string]any{"session": sess.ID, "chunk": r.ChunkID, "bytes": up.Received, "size": up.Expected},
	})

	if r.IsLast {
		name := filepath.Base(up.Path)
		if err := up.File.Close(); err != nil {
			s.Store.SetUpload(sess, nil)
			return protocol.ErrorResponse{Message: fmt.Sprintf("close error: %v", err)}
		}
		tool.DefaultLogger.Infof("Upload complete: %s (%d bytes)", up.Path, up.Received)
		share.RecordTransfer(types.TransferRecord{
			ID: uuid.NewString(), Direction: "upload", Transport: "udp",
			FileName: name, Size: up.Expected, Bytes: up.Received, Peer: sess.Key,
		})
		events.Publish(&types.Event{
			Type:    types.EventTransferDone,
			Message: fmt.Sprintf("upload of %s complete", name),
			Data:    map[string]any{"session": sess.ID, "bytes": up.Received},
		})
		s.Store.SetUpload(sess, nil)
	}
	return protocol.ChunkAckResponse{ChunkID: r.ChunkID}
}

func (s *DatagramServer) startDownload(sess *Session, r protocol.DownloadRequest) protocol.Response {
	full := filepath.Join(sess.Cwd, r.SrcPath)
	f, err := os.Open(full)
	if err != nil {
		return protocol.ErrorResponse{Message: fmt.Sprintf("open failed: %v", err)}
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return protocol.ErrorResponse{Message: fmt.Sprintf("stat failed: %v", err)}
	}
	name := filepath.Base(full)
	size := uint64(info.Size())

	if sess.Download != nil {
		_ = sess.Download.File.Close()
	}
	s.Store.SetDownload(sess, &DownloadState{
		File: f,
		Name: name,
		Size: size,
	})
	tool.DefaultLogger.Infof("Starting download: %s (%d bytes) to %s", name, size, sess.Key)
	events.Publish(&types.Event{
		Type:    types.EventTransferStart,
		Message: fmt.Sprintf("download of %s started", name),
		Data:    map[string]any{"session": sess.ID, "fileName": name, "size": size},
	})
	return protocol.FileMetadataResponse{Name: name, Size: size}
}

func (s *DatagramServer) downloadChunk(sess *Session, r protocol.DownloadChunkRequest) protocol.Response {
	down := sess.Download
	if down == nil {
		return protocol.ErrorResponse{Message: "no active download session"}
	}

	// The file position advances monotonically regardless of the requested
	// id; the id is echoed back so the client can detect a mismatch.
	buf := make([]byte, protocol.ChunkSize)
	n, err := down.File.Read(buf)
	if err != nil && err != io.EOF {
		_ = down.File.Close()
		s.Store.SetDownload(sess, nil)
		tool.DefaultLogger.Errorf("Read error on %s: %v", down.Name, err)
		return protocol.ErrorResponse{Message: fmt.Sprintf("read error: %v", err)}
	}
	isLast := n < protocol.ChunkSize
	down.SentChunks++
	tool.DefaultLogger.Debugf("Sending chunk %d (%d bytes, last: %v)", r.ChunkID, n, isLast)
	events.Publish(&types.Event{
		Type: types.EventTransferProgress,
		Data: map[string]any{"session": sess.ID, "chunk": r.ChunkID, "bytes": n, "size": down.Size},
	})

	if isLast {
		tool.DefaultLogger.Infof("Download complete: %s (%d chunks)", down.Name, down.SentChunks)
		_ = down.File.Close()
		share.RecordTransfer(types.TransferRecord{
			ID: uuid.NewString(), Direction: "download", Transport: "udp",
			FileName: down.Name, Size: down.Size, Bytes: down.Size, Peer: sess.Key,
		})
		events.Publish(&types.Event{
			Type:    types.EventTransferDone,
			Message: fmt.Sprintf("download of %s complete", down.Name),
			Data:    map[string]any{"session": sess.ID, "chunks": down.SentChunks},
		})
		s.Store.SetDownload(sess, nil)
	}
	return protocol.FileChunkResponse{ChunkID: r.ChunkID, Data: buf[:n], IsLast: isLast}
}
