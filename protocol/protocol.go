// Package protocol defines the shellbox wire messages and their binary
// encoding. The same encoding is used on both transports: a datagram carries
// exactly one encoded message, while the byte stream carries encoded messages
// back to back. The encoding is self-delimiting, so sequential reads on a
// shared stream recover message boundaries without an extra framing layer.
package protocol

const (
	// ChunkSize is the fixed payload size of one datagram transfer chunk.
	ChunkSize = 8192
	// MaxDatagramSize is the largest UDP packet the transports read.
	MaxDatagramSize = 65507
	// MaxDatagramPayload is the ceiling for one encoded message on the
	// datagram transport. Leaves room for headers.
	MaxDatagramPayload = 65000
)

// Request is the closed set of client-to-server messages.
type Request interface{ isRequest() }

type DirRequest struct{}

type CdUpRequest struct{}

type CdRequest struct {
	Path string
}

type MkdirRequest struct {
	Name string
}

type CopyRequest struct {
	Src string
	Dst string
}

// UploadRequest starts a transfer to the server. On the stream transport the
// client follows the server's Ok with exactly Size raw bytes; on the datagram
// transport it follows with UploadChunk messages.
type UploadRequest struct {
	DstPath  string
	FileName string
	Size     uint64
}

type DownloadRequest struct {
	SrcPath string
}

type UploadChunkRequest struct {
	ChunkID uint32
	Data    []byte
	IsLast  bool
}

type DownloadChunkRequest struct {
	ChunkID uint32
}

func (DirRequest) isRequest()           {}
func (CdUpRequest) isRequest()          {}
func (CdRequest) isRequest()            {}
func (MkdirRequest) isRequest()         {}
func (CopyRequest) isRequest()          {}
func (UploadRequest) isRequest()        {}
func (DownloadRequest) isRequest()      {}
func (UploadChunkRequest) isRequest()   {}
func (DownloadChunkRequest) isRequest() {}

// Response is the closed set of server-to-client messages.
type Response interface{ isResponse() }

type OkResponse struct{}

type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"isDir"`
}

type DirListResponse struct {
	Entries []DirEntry
}

type CopyResultResponse struct {
	BytesCopied uint64
}

// FileMetadataResponse precedes a download. On the stream transport the
// server follows it with exactly Size raw bytes.
type FileMetadataResponse struct {
	Name string
	Size uint64
}

type ErrorResponse struct {
	Message string
}

type ChunkAckResponse struct {
	ChunkID uint32
}

type FileChunkResponse struct {
	ChunkID uint32
	Data    []byte
	IsLast  bool
}

func (OkResponse) isResponse()           {}
func (DirListResponse) isResponse()      {}
func (CopyResultResponse) isResponse()   {}
func (FileMetadataResponse) isResponse() {}
func (ErrorResponse) isResponse()        {}
func (ChunkAckResponse) isResponse()     {}
func (FileChunkResponse) isResponse()    {}
