// Package client provides the operations consumed by the interactive front
// ends: directory navigation and file transfer against a shellbox server,
// over either transport. Upload and download pick the streaming or chunked
// strategy based on which client they were built against.
package client

import (
	"errors"
	"fmt"

	"github.com/shellbox-go/shellbox/protocol"
)

// Client is the transport-independent operation set.
type Client interface {
	List() ([]protocol.DirEntry, error)
	ChangeDir(path string) error
	ChangeDirUp() error
	MakeDir(name string) error
	Copy(src, dst string) (uint64, error)
	Upload(localPath, remoteDir string) error
	Download(remotePath, localDir string) error
	Close() error
}

var (
	// ErrChunkMismatch means a chunk exchange acknowledged a different id than
	// requested. The transfer is aborted rather than silently retried.
	ErrChunkMismatch = errors.New("chunk id mismatch")
	// ErrUnexpectedResponse means the server answered with a response kind the
	// operation cannot interpret.
	ErrUnexpectedResponse = errors.New("unexpected response")
	// ErrShortStream means the stream closed before the announced byte count
	// was delivered.
	ErrShortStream = errors.New("unexpected end of stream")
)

// RemoteError is an Error response surfaced by the server.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "server: " + e.Message
}

// respErr converts a non-success response into an error.
func respErr(resp protocol.Response) error {
	if e, ok := resp.(protocol.ErrorResponse); ok {
		return &RemoteError{Message: e.Message}
	}
	return fmt.Errorf("%w: %T", ErrUnexpectedResponse, resp)
}

// expectOk maps the common Ok/Error pair.
func expectOk(resp protocol.Response) error {
	if _, ok := resp.(protocol.OkResponse); ok {
		return nil
	}
	return respErr(resp)
}
