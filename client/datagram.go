package client

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/shellbox-go/shellbox/protocol"
	"github.com/shellbox-go/shellbox/tool"
)

// DefaultTimeout is the per-request receive timeout on the datagram
// transport. Expiry is surfaced to the caller; there is no automatic retry.
const DefaultTimeout = 5 * time.Second

// DatagramClient talks to a datagram-transport server. Every exchange is one
// request datagram answered by one response datagram; bulk data moves in
// individually acknowledged chunks because datagrams may be lost, reordered
// or duplicated and have a hard payload ceiling.
type DatagramClient struct {
	conn    net.Conn
	timeout time.Duration
	buf     []byte
}

var _ Client = (*DatagramClient)(nil)

// DialDatagram binds a local socket and associates it with the server at
// addr. timeout <= 0 selects DefaultTimeout.
func DialDatagram(addr string, timeout time.Duration) (*DatagramClient, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &DatagramClient{
		conn:    conn,
		timeout: timeout,
		buf:     make([]byte, protocol.MaxDatagramSize),
	}, nil
}

func (c *DatagramClient) Close() error {
	return c.conn.Close()
}

// roundTrip sends one request and waits for one response under the receive
// timeout.
func (c *DatagramClient) roundTrip(req protocol.Request) (protocol.Response, error) {
	payload, err := protocol.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("request encode failed: %w", err)
	}
	if _, err := c.conn.Write(payload); err != nil {
		return nil, fmt.Errorf("request send failed: %w", err)
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	n, err := c.conn.Read(c.buf)
	if err != nil {
		return nil, fmt.Errorf("response receive failed: %w", err)
	}
	resp, err := protocol.DecodeResponse(c.buf[:n])
	if err != nil {
		return nil, fmt.Errorf("response decode failed: %w", err)
	}
	return resp, nil
}

func (c *DatagramClient) List() ([]protocol.DirEntry, error) {
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

func (c *DatagramClient) ChangeDir(path string) error {
	resp, err := c.roundTrip(protocol.CdRequest{Path: path})
	if err != nil {
		return err
	}
	return expectOk(resp)
}

func (c *DatagramClient) ChangeDirUp() error {
	resp, err := c.roundTrip(protocol.CdUpRequest{})
	if err != nil {
		return err
	}
	return expectOk(resp)
}

func (c *DatagramClient) MakeDir(name string) error {
	resp, err := c.roundTrip(protocol.MkdirRequest{Name: name})
	if err != nil {
		return err
	}
	return expectOk(resp)
}

func (c *DatagramClient) Copy(src, dst string) (uint64, error) {
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

// Upload sends the file as a sequence of strictly ordered chunks, waiting for
// the matching ack before each next chunk. An empty file still sends one
// final empty chunk so the server closes its upload state.
func (c *DatagramClient) Upload(localPath, remoteDir string) error {
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

	chunk := make([]byte, protocol.ChunkSize)
	remaining := size
	var chunkID uint32
	for {
		n := 0
		if remaining > 0 {
			toRead := protocol.ChunkSize
			if remaining < uint64(toRead) {
				toRead = int(remaining)
			}
			if n, err = io.ReadFull(f, chunk[:toRead]); err != nil {
				return fmt.Errorf("read of %s failed: %w", localPath, err)
			}
		}
		isLast := remaining <= uint64(n)

		ack, err := c.roundTrip(protocol.UploadChunkRequest{
			ChunkID: chunkID,
			Data:    chunk[:n],
			IsLast:  isLast,
		})
		if err != nil {
			return err
		}
		acked, ok := ack.(protocol.ChunkAckResponse)
		if !ok {
			return respErr(ack)
		}
		if acked.ChunkID != chunkID {
			return fmt.Errorf("%w: sent %d, acked %d", ErrChunkMismatch, chunkID, acked.ChunkID)
		}

		remaining -= uint64(n)
		if isLast {
			break
		}
		chunkID++
	}
	tool.DefaultLogger.Infof("Uploaded %s (%d bytes, %d chunks)", fileName, size, chunkID+1)
	return nil
}

// Download requests the metadata, then pulls chunks with strictly sequential
// ids until the server marks the last one.
func (c *DatagramClient) Download(remotePath, localDir string) error {
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

	var received uint64
	var chunkID uint32
	for {
		resp, err := c.roundTrip(protocol.DownloadChunkRequest{ChunkID: chunkID})
		if err != nil {
			return err
		}
		fileChunk, ok := resp.(protocol.FileChunkResponse)
		if !ok {
			return respErr(resp)
		}
		if fileChunk.ChunkID != chunkID {
			return fmt.Errorf("%w: requested %d, got %d", ErrChunkMismatch, chunkID, fileChunk.ChunkID)
		}
		if _, err := f.Write(fileChunk.Data); err != nil {
			return fmt.Errorf("write of %s failed: %w", localPath, err)
		}
		received += uint64(len(fileChunk.Data))
		if fileChunk.IsLast {
			break
		}
		chunkID++
	}
	tool.DefaultLogger.Infof("Downloaded %s (%d bytes) to %s", meta.Name, received, localPath)
	return nil
}
