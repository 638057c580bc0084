// Package server implements the shellbox serving side: the filesystem
// operation handler, the datagram session store, and the dispatch loops for
// the stream and datagram transports.
package server

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shellbox-go/shellbox/protocol"
	"github.com/shellbox-go/shellbox/sandbox"
)

// Handler executes directory and copy requests against the sandboxed root.
type Handler struct {
	Root string
}

func NewHandler(root string) *Handler {
	return &Handler{Root: filepath.Clean(root)}
}

// Handle maps (cwd, request) to (possibly new cwd, response). Failures leave
// cwd unchanged and never terminate a serving loop.
func (h *Handler) Handle(cwd string, req protocol.Request) (string, protocol.Response) {
	switch r := req.(type) {
	case protocol.DirRequest:
		return cwd, h.listDir(cwd)
	case protocol.CdUpRequest:
		parent, err := sandbox.ResolveUp(h.Root, cwd)
		if err != nil {
			return cwd, protocol.ErrorResponse{Message: err.Error()}
		}
		return parent, protocol.OkResponse{}
	case protocol.CdRequest:
		next, err := sandbox.ResolveDown(h.Root, cwd, r.Path)
		if err != nil {
			return cwd, protocol.ErrorResponse{Message: err.Error()}
		}
		return next, protocol.OkResponse{}
	case protocol.MkdirRequest:
		if err := os.Mkdir(filepath.Join(cwd, r.Name), 0o755); err != nil {
			return cwd, protocol.ErrorResponse{Message: fmt.Sprintf("mkdir failed: %v", err)}
		}
		return cwd, protocol.OkResponse{}
	case protocol.CopyRequest:
		// Deliberately narrower than Cd/CdUp: src and dst are resolved under
		// cwd without a containment re-check.
		n, err := copyFile(filepath.Join(cwd, r.Src), filepath.Join(cwd, r.Dst))
		if err != nil {
			return cwd, protocol.ErrorResponse{Message: fmt.Sprintf("copy failed: %v", err)}
		}
		return cwd, protocol.CopyResultResponse{BytesCopied: n}
	case protocol.UploadRequest, protocol.DownloadRequest,
		protocol.UploadChunkRequest, protocol.DownloadChunkRequest:
		return cwd, protocol.ErrorResponse{Message: "transfer request outside transfer engine"}
	default:
		return cwd, protocol.ErrorResponse{Message: fmt.Sprintf("unsupported request %T", req)}
	}
}

func (h *Handler) listDir(cwd string) protocol.Response {
	entries, err := os.ReadDir(cwd)
	if err != nil {
		return protocol.ErrorResponse{Message: fmt.Sprintf("read dir failed: %v", err)}
	}
	list := make([]protocol.DirEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, protocol.DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return protocol.DirListResponse{Entries: list}
}

func copyFile(src, dst string) (uint64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// uploadDest builds the destination path of an upload. "." or an empty
// dstPath means the session's current directory.
func uploadDest(cwd, dstPath, fileName string) string {
	if dstPath == "." || dstPath == "" {
		return filepath.Join(cwd, fileName)
	}
	return filepath.Join(cwd, dstPath, fileName)
}
