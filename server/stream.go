package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/shellbox-go/shellbox/events"
	"github.com/shellbox-go/shellbox/protocol"
	"github.com/shellbox-go/shellbox/share"
	"github.com/shellbox-go/shellbox/tool"
	"github.com/shellbox-go/shellbox/types"
)

// StreamServer serves the protocol over a reliable byte stream. It accepts a
// single connection and serves its requests sequentially until the connection
// errors or closes; concurrent connections are out of this transport's
// contract.
type StreamServer struct {
	Addr string
	Root string

	handler *Handler

	mu       sync.Mutex
	listener net.Listener
}

func NewStreamServer(addr, root string) *StreamServer {
	root = filepath.Clean(root)
	return &StreamServer{
		Addr:    addr,
		Root:    root,
		handler: NewHandler(root),
	}
}

// ListenAndServe binds the address, accepts one connection, serves it to
// completion and returns.
func (s *StreamServer) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	defer ln.Close()

	tool.DefaultLogger.Infof("Stream server listening on %s (root: %s)", ln.Addr(), s.Root)

	conn, err := ln.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil
		}
		return fmt.Errorf("accept failed: %w", err)
	}
	defer conn.Close()

	tool.DefaultLogger.Infof("Client connected: %s", conn.RemoteAddr())
	s.serveConn(conn)
	tool.DefaultLogger.Infof("Client disconnected: %s", conn.RemoteAddr())
	return nil
}

// ListenerAddr returns the bound listener address, once listening.
func (s *StreamServer) ListenerAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops the listener; a blocked Accept returns immediately.
func (s *StreamServer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

// serveConn reads one request at a time. The connection's current directory
// lives here on the stack; it disappears when the connection closes.
func (s *StreamServer) serveConn(conn net.Conn) {
	cwd := s.Root
	peer := conn.RemoteAddr().String()

	for {
		req, err := protocol.ReadRequest(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				tool.DefaultLogger.Warnf("Request read failed from %s: %v", peer, err)
			}
			return
		}

		switch r := req.(type) {
		case protocol.UploadRequest:
			if err := s.handleUpload(conn, cwd, peer, r); err != nil {
				tool.DefaultLogger.Errorf("Upload failed from %s: %v", peer, err)
				return
			}
		case protocol.DownloadRequest:
			if err := s.handleDownload(conn, cwd, peer, r); err != nil {
				tool.DefaultLogger.Errorf("Download failed from %s: %v", peer, err)
				return
			}
		default:
			var resp protocol.Response
			cwd, resp = s.handler.Handle(cwd, req)
			if err := protocol.WriteResponse(conn, resp); err != nil {
				tool.DefaultLogger.Warnf("Response write failed to %s: %v", peer, err)
				return
			}
		}
	}
}

// handleUpload replies Ok and then reads exactly r.Size raw bytes off the
// stream into the destination file. A non-nil error means the stream is no
// longer usable.
func (s *StreamServer) handleUpload(conn net.Conn, cwd, peer string, r protocol.UploadRequest) error {
	dest := uploadDest(cwd, r.DstPath, r.FileName)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return protocol.WriteResponse(conn, protocol.ErrorResponse{Message: fmt.Sprintf("cannot create file: %v", err)})
	}
	f, err := os.Create(dest)
	if err != nil {
		return protocol.WriteResponse(conn, protocol.ErrorResponse{Message: fmt.Sprintf("cannot create file: %v", err)})
	}
	defer f.Close()

	if err := protocol.WriteResponse(conn, protocol.OkResponse{}); err != nil {
		return err
	}

	id := uuid.NewString()
	events.Publish(&types.Event{
		Type:    types.EventTransferStart,
		Message: fmt.Sprintf("upload of %s started", r.FileName),
		Data:    map[string]any{"id": id, "fileName": r.FileName, "size": r.Size, "peer": peer},
	})

	n, err := io.CopyN(f, conn, int64(r.Size))
	if err != nil {
		share.RecordTransfer(types.TransferRecord{
			ID: id, Direction: "upload", Transport: "tcp",
			FileName: r.FileName, Size: r.Size, Bytes: uint64(n), Peer: peer,
			Failed: true, Error: err.Error(),
		})
		events.Publish(&types.Event{
			Type:    types.EventTransferFailed,
			Message: fmt.Sprintf("upload of %s failed", r.FileName),
			Data:    map[string]any{"id": id, "error": err.Error()},
		})
		return fmt.Errorf("unexpected end of stream after %d of %d bytes: %w", n, r.Size, err)
	}

	tool.DefaultLogger.Infof("Uploaded %s to %s (%d bytes)", r.FileName, dest, n)
	share.RecordTransfer(types.TransferRecord{
		ID: id, Direction: "upload", Transport: "tcp",
		FileName: r.FileName, Size: r.Size, Bytes: uint64(n), Peer: peer,
	})
	events.Publish(&types.Event{
		Type:    types.EventTransferDone,
		Message: fmt.Sprintf("upload of %s complete", r.FileName),
		Data:    map[string]any{"id": id, "bytes": n},
	})
	return nil
}

// handleDownload replies with the file metadata and then streams exactly the
// announced byte count.
func (s *StreamServer) handleDownload(conn net.Conn, cwd, peer string, r protocol.DownloadRequest) error {
	full := filepath.Join(cwd, r.SrcPath)
	f, err := os.Open(full)
	if err != nil {
		return protocol.WriteResponse(conn, protocol.ErrorResponse{Message: fmt.Sprintf("open failed: %v", err)})
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return protocol.WriteResponse(conn, protocol.ErrorResponse{Message: fmt.Sprintf("stat failed: %v", err)})
	}
	name := filepath.Base(full)
	size := uint64(info.Size())

	if err := protocol.WriteResponse(conn, protocol.FileMetadataResponse{Name: name, Size: size}); err != nil {
		return err
	}

	id := uuid.NewString()
	events.Publish(&types.Event{
		Type:    types.EventTransferStart,
		Message: fmt.Sprintf("download of %s started", name),
		Data:    map[string]any{"id": id, "fileName": name, "size": size, "peer": peer},
	})

	n, err := io.CopyN(conn, f, int64(size))
	if err != nil {
		share.RecordTransfer(types.TransferRecord{
			ID: id, Direction: "download", Transport: "tcp",
			FileName: name, Size: size, Bytes: uint64(n), Peer: peer,
			Failed: true, Error: err.Error(),
		})
		events.Publish(&types.Event{
			Type:    types.EventTransferFailed,
			Message: fmt.Sprintf("download of %s failed", name),
			Data:    map[string]any{"id": id, "error": err.Error()},
		})
		return fmt.Errorf("stream write failed after %d of %d bytes: %w", n, size, err)
	}

	tool.DefaultLogger.Infof("Sent %s (%d bytes)", name, n)
	share.RecordTransfer(types.TransferRecord{
		ID: id, Direction: "download", Transport: "tcp",
		FileName: name, Size: size, Bytes: uint64(n), Peer: peer,
	})
	events.Publish(&types.Event{
		Type:    types.EventTransferDone,
		Message: fmt.Sprintf("download of %s complete", name),
		Data:    map[string]any{"id": id, "bytes": n},
	})
	return nil
}
