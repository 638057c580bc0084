package client

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/shellbox-go/shellbox/protocol"
	"github.com/shellbox-go/shellbox/tool"
)

// StreamClient talks to a stream-transport server. Requests and responses
// share one blocking connection, so order is preserved without extra framing.
type StreamClient struct {
	conn net.Conn
}

var _ Client = (*StreamClient)(nil)

// DialStream connects to a stream server at addr.
func DialStream(addr string) (*StreamClient, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &StreamClient{conn: conn}, nil
}

func (c *StreamClient) Close() error {
	return c.conn.Close()
}

func (c *StreamClient) roundTrip(req protocol.Request) (protocol.Response, error) {
	if err := protocol.WriteRequest(c.conn, req); err != nil {
		return nil, fmt.Errorf("request write failed: %w", err)
	}
	resp, err := protocol.ReadResponse(c.conn)
	if err != nil {
		return nil, fmt.Errorf("response read failed: %w", err)
	}
	return resp, nil
}

func (c *StreamClient) List() ([]protocol.DirEntry, error) {
	resp, err := c.roundTrip(protocol.DirRequest{})
	if err != nil {
		return nil, err
	}
	list, ok := resp.(protocol.DirListResponse)
	if !ok {
		return nil, respErr(resp)
	}
	return list.Entries, nil
}

func (c *StreamClient) ChangeDir(path string) error {
	resp, err := c.roundTrip(protocol.CdRequest{Path: path})
	if err != nil {
		return err
	}
	return expectOk(resp)
}

func (c *StreamClient) ChangeDirUp() error {
	resp, err := c.roundTrip(protocol.CdUpRequest{})
	if err != nil {
		return err
	}
	return expectOk(resp)
}

func (c *StreamClient) MakeDir(name string) error {
	resp, err := c.roundTrip(protocol.MkdirRequest{Name: name})
	if err != nil {
		return err
	}
	return expectOk(resp)
}

func (c *StreamClient) Copy(src, dst string) (uint64, error) {
	resp, err := c.roundTrip(protocol.CopyRequest{Src: src, Dst: dst})
	if err != nil {
		return 0, err
	}
	result, ok := resp.(protocol.CopyResultResponse)
	if !ok {
		return 0, respErr(resp)
	}
	return result.BytesCopied, nil
}

// Upload streams localPath to the server: a metadata exchange, then exactly
// size raw bytes on the same connection with no further framing.
func (c *StreamClient) Upload(localPath, remoteDir string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", localPath, err)
	}
	size := uint64(info.Size())
	fileName := filepath.Base(localPath)

	resp, err := c.roundTrip(protocol.UploadRequest{
		DstPath:  remoteDir,
		FileName: fileName,
		Size:     size,
	})
	if err != nil {
		return err
	}
	if err := expectOk(resp); err != nil {
		return err
	}

	n, err := io.CopyN(c.conn, f, int64(size))
	if err != nil {
		return fmt.Errorf("upload interrupted after %d of %d bytes: %w", n, size, err)
	}
	tool.DefaultLogger.Infof("Uploaded %s (%d bytes)", fileName, n)
	return nil
}

// Download receives the file metadata and then reads exactly the announced
// byte count off the stream. Closure before that count is a failure.
func (c *StreamClient) Download(remotePath, localDir string) error {
	resp, err := c.roundTrip(protocol.DownloadRequest{SrcPath: remotePath})
	if err != nil {
		return err
	}
	meta, ok := resp.(protocol.FileMetadataResponse)
	if !ok {
		return respErr(resp)
	}

	localPath := filepath.Join(localDir, meta.Name)
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", localDir, err)
	}
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", localPath, err)
	}
	defer f.Close()

	n, err := io.CopyN(f, c.conn, int64(meta.Size))
	if err != nil {
		return fmt.Errorf("%w: got %d of %d bytes: %v", ErrShortStream, n, meta.Size, err)
	}
	tool.DefaultLogger.Infof("Downloaded %s (%d bytes) to %s", meta.Name, n, localPath)
	return nil
}
