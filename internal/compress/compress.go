package compress

import "fmt"

// Compress encodes and decodes byte payloads.
type Compress interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

var (
	_ Compress = Nop{}
	_ Compress = GZip{}
	_ Compress = Brotli{}
	_ Compress = LZ4{}
)

// New returns the codec registered under name. An empty name is nop.
func New(name string) (Compress, error) {
	switch name {
	case "", "nop", "none":
		return NewNop(), nil
	case "gzip":
		return NewGZip(), nil
	case "brotli":
		return NewBrotli(), nil
	case "lz4":
		return NewLZ4(), nil
	default:
		return nil, fmt.Errorf("unknown compression: %s", name)
	}
}
