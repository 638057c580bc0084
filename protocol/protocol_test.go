package protocol

import (
	"bytes"
	"reflect"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	var tests = []struct {
		name string
		req  Request
	}{
		{"dir", DirRequest{}},
		{"cdup", CdUpRequest{}},
		{"cd", CdRequest{Path: "docs/reports"}},
		{"cd empty", CdRequest{Path: ""}},
		{"mkdir", MkdirRequest{Name: "new-folder"}},
		{"copy", CopyRequest{Src: "a.txt", Dst: "b.txt"}},
		{"upload", UploadRequest{DstPath: ".", FileName: "data.bin", Size: 1 << 20}},
		{"upload zero", UploadRequest{DstPath: "sub/dir", FileName: "empty", Size: 0}},
		{"download", DownloadRequest{SrcPath: "data.bin"}},
		{"upload chunk", UploadChunkRequest{ChunkID: 7, Data: []byte("hello"), IsLast: false}},
		{"upload chunk last", UploadChunkRequest{ChunkID: 0, Data: bytes.Repeat([]byte{0xAB}, ChunkSize), IsLast: true}},
		{"upload chunk empty", UploadChunkRequest{ChunkID: 3, Data: []byte{}, IsLast: true}},
		{"download chunk", DownloadChunkRequest{ChunkID: 42}},
	}

	for _, test := range tests {
		payload, err := EncodeRequest(test.req)
		if err != nil {
			t.Errorf("EncodeRequest(%s): %v", test.name, err)
			continue
		}
		got, err := DecodeRequest(payload)
		if err != nil {
			t.Errorf("DecodeRequest(%s): %v", test.name, err)
			continue
		}
		if !reflect.DeepEqual(got, test.req) {
			t.Errorf("round trip %s: got %#v, want %#v", test.name, got, test.req)
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	var tests = []struct {
		name string
		resp Response
	}{
		{"ok", OkResponse{}},
		{"dir list", DirListResponse{Entries: []DirEntry{
			{Name: "docs", IsDir: true},
			{Name: "a.txt", IsDir: false},
		}}},
		{"dir list empty", DirListResponse{Entries: []DirEntry{}}},
		{"copy result", CopyResultResponse{BytesCopied: 8193}},
		{"file metadata", FileMetadataResponse{Name: "data.bin", Size: 1 << 30}},
		{"error", ErrorResponse{Message: "no active upload session"}},
		{"chunk ack", ChunkAckResponse{ChunkID: 9}},
		{"file chunk", FileChunkResponse{ChunkID: 1, Data: []byte("payload"), IsLast: false}},
		{"file chunk empty last", FileChunkResponse{ChunkID: 2, Data: []byte{}, IsLast: true}},
	}

	for _, test := range tests {
		payload, err := EncodeResponse(test.resp)
		if err != nil {
			t.Errorf("EncodeResponse(%s): %v", test.name, err)
			continue
		}
		got, err := DecodeResponse(payload)
		if err != nil {
			t.Errorf("DecodeResponse(%s): %v", test.name, err)
			continue
		}
		if !reflect.DeepEqual(got, test.resp) {
			t.Errorf("round trip %s: got %#v, want %#v", test.name, got, test.resp)
		}
	}
}

// Sequential messages on one byte stream must come back out one at a time:
// the encoding is its own framing.
func TestStreamSelfDelimiting(t *testing.T) {
	reqs := []Request{
		CdRequest{Path: "a"},
		DirRequest{},
		UploadChunkRequest{ChunkID: 0, Data: []byte{1, 2, 3}, IsLast: true},
		CdUpRequest{},
	}

	var stream bytes.Buffer
	for _, req := range reqs {
		if err := WriteRequest(&stream, req); err != nil {
			t.Fatalf("WriteRequest: %v", err)
		}
	}

	for i, want := range reqs {
		got, err := ReadRequest(&stream)
		if err != nil {
			t.Fatalf("ReadRequest #%d: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("message #%d: got %#v, want %#v", i, got, want)
		}
	}
	if stream.Len() != 0 {
		t.Errorf("stream has %d leftover bytes", stream.Len())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	var tests = []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"unknown tag", []byte{0xFF}},
		{"truncated cd", []byte{tagReqCd, 0x10, 0x00, 'a'}},
		{"oversized blob", append([]byte{tagReqUploadChunk, 0, 0, 0, 0}, 0xFF, 0xFF, 0xFF, 0xFF)},
	}

	for _, test := range tests {
		if _, err := DecodeRequest(test.data); err == nil {
			t.Errorf("DecodeRequest(%s) succeeded, want error", test.name)
		}
	}
}

func TestChunkFitsDatagram(t *testing.T) {
	resp := FileChunkResponse{
		ChunkID: 1<<32 - 1,
		Data:    bytes.Repeat([]byte{0x55}, ChunkSize),
		IsLast:  false,
	}
	payload, err := EncodeResponse(resp)
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	if len(payload) > MaxDatagramPayload {
		t.Errorf("full chunk encodes to %d bytes, exceeds payload ceiling %d", len(payload), MaxDatagramPayload)
	}
}
