package compress

import (
	"bytes"
	"compress/gzip"
	"io"
	"sync"
)

// GZip compresses change payloads at a fixed level. Writers are pooled per codec since
// the queue encodes one payload per published change. The zero value compresses at
// BestSpeed without pooling.
type GZip struct {
	level int
	pool  *sync.Pool
}

func NewGZip() GZip {
	return NewGZipLevel(gzip.BestSpeed)
}

// NewGZipLevel falls back to the default level when level is out of range.
func NewGZipLevel(level int) GZip {
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		level = gzip.DefaultCompression
	}

	return GZip{
		level: level,
		pool: &sync.Pool{New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, level)
			return w
		}},
	}
}

func (g GZip) writer(buf *bytes.Buffer) (*gzip.Writer, func()) {
	if g.pool == nil {
		w, _ := gzip.NewWriterLevel(buf, gzip.BestSpeed)
		return w, func() {}
	}

	w := g.pool.Get().(*gzip.Writer)
	w.Reset(buf)
	return w, func() { g.pool.Put(w) }
}

func (g GZip) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, release := g.writer(&buf)
	defer release()

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (g GZip) Decode(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
