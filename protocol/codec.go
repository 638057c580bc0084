package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Wire layout: one u8 message tag followed by the variant's fields in order.
// Strings are u16 length-prefixed, byte blobs u32 length-prefixed, sizes u64,
// bools a single 0/1 byte. All integers little-endian.

const (
	tagReqDir = iota + 1
	tagReqCdUp
	tagReqCd
	tagReqMkdir
	tagReqCopy
	tagReqUpload
	tagReqDownload
	tagReqUploadChunk
	tagReqDownloadChunk
)

const (
	tagRespOk = iota + 1
	tagRespDirList
	tagRespCopyResult
	tagRespFileMetadata
	tagRespError
	tagRespChunkAck
	tagRespFileChunk
)

// maxBlobLen bounds length prefixes on decode so a malformed message cannot
// ask for an unbounded allocation.
const maxBlobLen = MaxDatagramPayload

// encoder builds little-endian protocol payloads.
type encoder struct {
	b []byte
}

func newEncoder(capacity int) *encoder {
	return &encoder{b: make([]byte, 0, capacity)}
}

func (e *encoder) bytes() []byte { return e.b }

func (e *encoder) writeU8(v byte) {
	e.b = append(e.b, v)
}

func (e *encoder) writeU16(v uint16) {
	e.b = binary.LittleEndian.AppendUint16(e.b, v)
}

func (e *encoder) writeU32(v uint32) {
	e.b = binary.LittleEndian.AppendUint32(e.b, v)
}

func (e *encoder) writeU64(v uint64) {
	e.b = binary.LittleEndian.AppendUint64(e.b, v)
}

func (e *encoder) writeBool(v bool) {
	if v {
		e.writeU8(1)
	} else {
		e.writeU8(0)
	}
}

func (e *encoder) writeString(s string) error {
	if len(s) > 0xFFFF {
		return fmt.Errorf("string too long: %d", len(s))
	}
	e.writeU16(uint16(len(s)))
	e.b = append(e.b, s...)
	return nil
}

func (e *encoder) writeBlob(b []byte) error {
	if len(b) > maxBlobLen {
		return fmt.Errorf("blob too long: %d", len(b))
	}
	e.writeU32(uint32(len(b)))
	e.b = append(e.b, b...)
	return nil
}

// decoder reads little-endian primitives from an io.Reader. Reading from the
// stream directly is what makes the encoding self-delimiting: each variant
// consumes exactly its own fields.
type decoder struct {
	r io.Reader
}

func (d *decoder) readU8() (byte, error) {
	var tmp [1]byte
	if _, err := io.ReadFull(d.r, tmp[:]); err != nil {
		return 0, err
	}
	return tmp[0], nil
}

func (d *decoder) readU16() (uint16, error) {
	var tmp [2]byte
	if _, err := io.ReadFull(d.r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(tmp[:]), nil
}

func (d *decoder) readU32() (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(d.r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func (d *decoder) readU64() (uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(d.r, tmp[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

func (d *decoder) readBool() (bool, error) {
	v, err := d.readU8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool byte 0x%02x", v)
	}
}

func (d *decoder) readString() (string, error) {
	ln, err := d.readU16()
	if err != nil {
		return "", err
	}
	b := make([]byte, int(ln))
	if _, err := io.ReadFull(d.r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) readBlob() ([]byte, error) {
	ln, err := d.readU32()
	if err != nil {
		return nil, err
	}
	if ln > maxBlobLen {
		return nil, fmt.Errorf("blob length %d exceeds limit %d", ln, maxBlobLen)
	}
	b := make([]byte, int(ln))
	if _, err := io.ReadFull(d.r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// EncodeRequest encodes req into a single self-delimiting payload.
func EncodeRequest(req Request) ([]byte, error) {
	e := newEncoder(64)
	switch r := req.(type) {
	case DirRequest:
		e.writeU8(tagReqDir)
	case CdUpRequest:
		e.writeU8(tagReqCdUp)
	case CdRequest:
		e.writeU8(tagReqCd)
		if err := e.writeString(r.Path); err != nil {
			return nil, err
		}
	case MkdirRequest:
		e.writeU8(tagReqMkdir)
		if err := e.writeString(r.Name); err != nil {
			return nil, err
		}
	case CopyRequest:
		e.writeU8(tagReqCopy)
		if err := e.writeString(r.Src); err != nil {
			return nil, err
		}
		if err := e.writeString(r.Dst); err != nil {
			return nil, err
		}
	case UploadRequest:
		e.writeU8(tagReqUpload)
		if err := e.writeString(r.DstPath); err != nil {
			return nil, err
		}
		if err := e.writeString(r.FileName); err != nil {
			return nil, err
		}
		e.writeU64(r.Size)
	case DownloadRequest:
		e.writeU8(tagReqDownload)
		if err := e.writeString(r.SrcPath); err != nil {
			return nil, err
		}
	case UploadChunkRequest:
		e.writeU8(tagReqUploadChunk)
		e.writeU32(r.ChunkID)
		if err := e.writeBlob(r.Data); err != nil {
			return nil, err
		}
		e.writeBool(r.IsLast)
	case DownloadChunkRequest:
		e.writeU8(tagReqDownloadChunk)
		e.writeU32(r.ChunkID)
	default:
		return nil, fmt.Errorf("unknown request type %T", req)
	}
	return e.bytes(), nil
}

// EncodeResponse encodes resp into a single self-delimiting payload.
func EncodeResponse(resp Response) ([]byte, error) {
	e := newEncoder(64)
	switch r := resp.(type) {
	case OkResponse:
		e.writeU8(tagRespOk)
	case DirListResponse:
		e.writeU8(tagRespDirList)
		e.writeU32(uint32(len(r.Entries)))
		for _, entry := range r.Entries {
			if err := e.writeString(entry.Name); err != nil {
				return nil, err
			}
			e.writeBool(entry.IsDir)
		}
	case CopyResultResponse:
		e.writeU8(tagRespCopyResult)
		e.writeU64(r.BytesCopied)
	case FileMetadataResponse:
		e.writeU8(tagRespFileMetadata)
		if err := e.writeString(r.Name); err != nil {
			return nil, err
		}
		e.writeU64(r.Size)
	case ErrorResponse:
		e.writeU8(tagRespError)
		if err := e.writeString(r.Message); err != nil {
			return nil, err
		}
	case ChunkAckResponse:
		e.writeU8(tagRespChunkAck)
		e.writeU32(r.ChunkID)
	case FileChunkResponse:
		e.writeU8(tagRespFileChunk)
		e.writeU32(r.ChunkID)
		if err := e.writeBlob(r.Data); err != nil {
			return nil, err
		}
		e.writeBool(r.IsLast)
	default:
		return nil, fmt.Errorf("unknown response type %T", resp)
	}
	return e.bytes(), nil
}

// ReadRequest reads exactly one Request from r.
func ReadRequest(r io.Reader) (Request, error) {
	d := &decoder{r: r}
	tag, err := d.readU8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagReqDir:
		return DirRequest{}, nil
	case tagReqCdUp:
		return CdUpRequest{}, nil
	case tagReqCd:
		path, err := d.readString()
		if err != nil {
			return nil, err
		}
		return CdRequest{Path: path}, nil
	case tagReqMkdir:
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		return MkdirRequest{Name: name}, nil
	case tagReqCopy:
		src, err := d.readString()
		if err != nil {
			return nil, err
		}
		dst, err := d.readString()
		if err != nil {
			return nil, err
		}
		return CopyRequest{Src: src, Dst: dst}, nil
	case tagReqUpload:
		dstPath, err := d.readString()
		if err != nil {
			return nil, err
		}
		fileName, err := d.readString()
		if err != nil {
			return nil, err
		}
		size, err := d.readU64()
		if err != nil {
			return nil, err
		}
		return UploadRequest{DstPath: dstPath, FileName: fileName, Size: size}, nil
	case tagReqDownload:
		srcPath, err := d.readString()
		if err != nil {
			return nil, err
		}
		return DownloadRequest{SrcPath: srcPath}, nil
	case tagReqUploadChunk:
		chunkID, err := d.readU32()
		if err != nil {
			return nil, err
		}
		data, err := d.readBlob()
		if err != nil {
			return nil, err
		}
		isLast, err := d.readBool()
		if err != nil {
			return nil, err
		}
		return UploadChunkRequest{ChunkID: chunkID, Data: data, IsLast: isLast}, nil
	case tagReqDownloadChunk:
		chunkID, err := d.readU32()
		if err != nil {
			return nil, err
		}
		return DownloadChunkRequest{ChunkID: chunkID}, nil
	default:
		return nil, fmt.Errorf("unknown request tag 0x%02x", tag)
	}
}

// ReadResponse reads exactly one Response from r.
func ReadResponse(r io.Reader) (Response, error) {
	d := &decoder{r: r}
	tag, err := d.readU8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagRespOk:
		return OkResponse{}, nil
	case tagRespDirList:
		count, err := d.readU32()
		if err != nil {
			return nil, err
		}
		entries := make([]DirEntry, 0, min(int(count), 1024))
		for i := uint32(0); i < count; i++ {
			name, err := d.readString()
			if err != nil {
				return nil, err
			}
			isDir, err := d.readBool()
			if err != nil {
				return nil, err
			}
			entries = append(entries, DirEntry{Name: name, IsDir: isDir})
		}
		return DirListResponse{Entries: entries}, nil
	case tagRespCopyResult:
		n, err := d.readU64()
		if err != nil {
			return nil, err
		}
		return CopyResultResponse{BytesCopied: n}, nil
	case tagRespFileMetadata:
		name, err := d.readString()
		if err != nil {
			return nil, err
		}
		size, err := d.readU64()
		if err != nil {
			return nil, err
		}
		return FileMetadataResponse{Name: name, Size: size}, nil
	case tagRespError:
		msg, err := d.readString()
		if err != nil {
			return nil, err
		}
		return ErrorResponse{Message: msg}, nil
	case tagRespChunkAck:
		chunkID, err := d.readU32()
		if err != nil {
			return nil, err
		}
		return ChunkAckResponse{ChunkID: chunkID}, nil
	case tagRespFileChunk:
		chunkID, err := d.readU32()
		if err != nil {
			return nil, err
		}
		data, err := d.readBlob()
		if err != nil {
			return nil, err
		}
		isLast, err := d.readBool()
		if err != nil {
			return nil, err
		}
		return FileChunkResponse{ChunkID: chunkID, Data: data, IsLast: isLast}, nil
	default:
		return nil, fmt.Errorf("unknown response tag 0x%02x", tag)
	}
}

// DecodeRequest decodes one Request from a datagram payload.
func DecodeRequest(b []byte) (Request, error) {
	return ReadRequest(bytes.NewReader(b))
}

// DecodeResponse decodes one Response from a datagram payload.
func DecodeResponse(b []byte) (Response, error) {
	return ReadResponse(bytes.NewReader(b))
}

// WriteRequest encodes req and writes it to w.
func WriteRequest(w io.Writer, req Request) error {
	b, err := EncodeRequest(req)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// WriteResponse encodes resp and writes it to w.
func WriteResponse(w io.Writer, resp Response) error {
	b, err := EncodeResponse(resp)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
