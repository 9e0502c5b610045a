package gateway

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

func TestNoneDecompressorPassesThrough(t *testing.T) {
	d := newDecompressor(ModeNone)
	doc, ok, err := d.decode(false, []byte(`{"op":1}`))
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v", ok, err)
	}
	if string(doc) != `{"op":1}` {
		t.Fatalf("got %s", doc)
	}
}

func TestPerPayloadZlibDecodesOneFrame(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, _ = w.Write([]byte(`{"op":10}`))
	_ = w.Close()

	d := newDecompressor(ModeZlibPayload)
	doc, ok, err := d.decode(false, buf.Bytes())
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v", ok, err)
	}
	if string(doc) != `{"op":10}` {
		t.Fatalf("got %s", doc)
	}
}

func TestPerPayloadZlibRejectsGarbage(t *testing.T) {
	d := newDecompressor(ModeZlibPayload)
	if _, _, err := d.decode(false, []byte("not zlib")); err == nil {
		t.Fatalf("expected an error for malformed zlib data")
	}
}

func TestZlibStreamWaitsForSyncFlushMarker(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, _ = w.Write([]byte(`{"op":10}`))
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	full := buf.Bytes()
	d := newDecompressor(ModeZlibStream)

	half := len(full) / 2
	if half > 0 {
		_, ok, err := d.decode(false, full[:half])
		if err != nil {
			t.Fatalf("unexpected error on partial frame: %v", err)
		}
		if ok {
			t.Fatalf("expected an incomplete segment not to decode yet")
		}
	}

	doc, ok, err := d.decode(false, full[half:])
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v", ok, err)
	}
	if string(doc) != `{"op":10}` {
		t.Fatalf("got %s", doc)
	}
}

func TestZlibStreamDecodesMultipleMessagesWithSharedInflator(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, _ = w.Write([]byte(`{"op":10}`))
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	first := append([]byte(nil), buf.Bytes()...)

	buf.Reset()
	_, _ = w.Write([]byte(`{"op":11}`))
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	second := append([]byte(nil), buf.Bytes()...)
	_ = w.Close()

	d := newDecompressor(ModeZlibStream)

	doc, ok, err := d.decode(false, first)
	if err != nil || !ok {
		t.Fatalf("first message: got ok=%v err=%v", ok, err)
	}
	if string(doc) != `{"op":10}` {
		t.Fatalf("first message: got %s", doc)
	}

	// The second segment carries no zlib header of its own; decoding it
	// correctly depends on the first call's inflator (and its dictionary)
	// having survived rather than been discarded.
	doc, ok, err = d.decode(false, second)
	if err != nil || !ok {
		t.Fatalf("second message: got ok=%v err=%v", ok, err)
	}
	if string(doc) != `{"op":11}` {
		t.Fatalf("second message: got %s", doc)
	}
}

func TestZstdStreamRetriesUntilComplete(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	compressed := enc.EncodeAll([]byte(`{"op":10}`), nil)
	_ = enc.Close()

	d := newDecompressor(ModeZstdStream)

	half := len(compressed) / 2
	if half > 0 {
		_, ok, err := d.decode(false, compressed[:half])
		if err != nil {
			t.Fatalf("unexpected error on partial frame: %v", err)
		}
		if ok {
			t.Fatalf("expected a truncated frame not to decode yet")
		}
	}

	doc, ok, err := d.decode(false, compressed[half:])
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v", ok, err)
	}
	if string(doc) != `{"op":10}` {
		t.Fatalf("got %s", doc)
	}
}

func TestModeQueryValue(t *testing.T) {
	if v, ok := ModeZlibStream.QueryValue(); !ok || v != "zlib-stream" {
		t.Fatalf("got %q ok=%v", v, ok)
	}
	if v, ok := ModeZstdStream.QueryValue(); !ok || v != "zstd-stream" {
		t.Fatalf("got %q ok=%v", v, ok)
	}
	if _, ok := ModeZlibPayload.QueryValue(); ok {
		t.Fatalf("per-payload zlib has no query representation")
	}
	if _, ok := ModeNone.QueryValue(); ok {
		t.Fatalf("none has no query representation")
	}
}
