package gateway

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/nyxcord/nyxcord/internal/nyxerr"
)

// Mode selects the gateway wire compression scheme.
type Mode int

const (
	ModeNone Mode = iota
	ModeZlibPayload
	ModeZlibStream
	ModeZstdStream
)

// QueryValue is the "compress" query parameter value for streaming modes;
// per-payload zlib is negotiated through the Identify payload instead, so it
// has no query representation.
func (m Mode) QueryValue() (string, bool) {
	switch m {
	case ModeZlibStream:
		return "zlib-stream", true
	case ModeZstdStream:
		return "zstd-stream", true
	default:
		return "", false
	}
}

// zlibSyncFlushMarker terminates a complete zlib sync-flush segment.
var zlibSyncFlushMarker = []byte{0x00, 0x00, 0xff, 0xff}

// decompressor turns raw frames into JSON documents according to the
// negotiated Mode. Text frames always pass through as-is; binary frames are
// handled per mode. Stream modes carry state across frames (an inflator, or
// an accumulation buffer), so one decompressor belongs to exactly one
// connection.
type decompressor interface {
	// decode consumes one frame. ok is false when the frame did not yet
	// complete a document (stream modes only) and the caller should read
	// the next frame and call decode again.
	decode(isText bool, frame []byte) (doc []byte, ok bool, err error)
}

func newDecompressor(mode Mode) decompressor {
	switch mode {
	case ModeZlibPayload:
		return &perPayloadZlib{}
	case ModeZlibStream:
		return &zlibStream{}
	case ModeZstdStream:
		return &zstdStream{}
	default:
		return noneDecompressor{}
	}
}

type noneDecompressor struct{}

func (noneDecompressor) decode(isText bool, frame []byte) ([]byte, bool, error) {
	return frame, true, nil
}

// perPayloadZlib treats every binary frame as an independent zlib document.
type perPayloadZlib struct{}

func (perPayloadZlib) decode(isText bool, frame []byte) ([]byte, bool, error) {
	if isText {
		return frame, true, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(frame))
	if err != nil {
		return nil, false, nyxerr.FromProtocol(nyxerr.NewInvalidPayload("zlib payload: " + err.Error()))
	}
	defer r.Close()
	doc, err := io.ReadAll(r)
	if err != nil {
		return nil, false, nyxerr.FromProtocol(nyxerr.NewInvalidPayload("zlib payload: " + err.Error()))
	}
	return doc, true, nil
}

// zlibStream accumulates binary frames until the buffer ends with the
// sync-flush marker, then drains one long-lived inflator reading from that
// same buffer. The zlib header is only ever present once, at the very start
// of the connection; every later sync-flush segment is a headerless deflate
// continuation, so the inflator (and its dictionary) must survive across
// decode calls rather than being recreated per segment.
type zlibStream struct {
	buf bytes.Buffer
	zr  io.ReadCloser
}

func (z *zlibStream) decode(isText bool, frame []byte) ([]byte, bool, error) {
	if isText {
		return frame, true, nil
	}
	z.buf.Write(frame)
	if !hasSyncFlushSuffix(z.buf.Bytes()) {
		return nil, false, nil
	}

	if z.zr == nil {
		r, err := zlib.NewReader(&z.buf)
		if err != nil {
			return nil, false, nyxerr.FromProtocol(nyxerr.NewInvalidPayload("zlib stream: " + err.Error()))
		}
		z.zr = r
	}

	// Read only while buffered input remains: letting the inflator run into
	// the end of the buffer would surface a sticky unexpected-EOF error.
	var out bytes.Buffer
	chunk := make([]byte, 64*1024)
	for z.buf.Len() > 0 {
		n, err := z.zr.Read(chunk)
		out.Write(chunk[:n])
		if err != nil {
			return nil, false, nyxerr.FromProtocol(nyxerr.NewInvalidPayload("zlib stream: " + err.Error()))
		}
	}
	return out.Bytes(), true, nil
}

func hasSyncFlushSuffix(b []byte) bool {
	if len(b) < len(zlibSyncFlushMarker) {
		return false
	}
	return bytes.Equal(b[len(b)-len(zlibSyncFlushMarker):], zlibSyncFlushMarker)
}

// zstdStream accumulates binary frames and attempts a decode on every
// append; a failed decode means the document is incomplete, so the buffer
// is retried on the next frame rather than treated as an error.
type zstdStream struct {
	buf     bytes.Buffer
	decoder *zstd.Decoder
}

func (z *zstdStream) decode(isText bool, frame []byte) ([]byte, bool, error) {
	if isText {
		return frame, true, nil
	}
	z.buf.Write(frame)

	if z.decoder == nil {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, false, nyxerr.FromProtocol(nyxerr.NewInvalidPayload("zstd stream: " + err.Error()))
		}
		z.decoder = dec
	}

	doc, err := z.decoder.DecodeAll(z.buf.Bytes(), nil)
	if err != nil {
		return nil, false, nil
	}
	z.buf.Reset()
	return doc, true, nil
}
