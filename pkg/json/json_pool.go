// Package json provides JSON serialization backed by goccy/go-json, with
// scratch buffers drawn from a slot pool.
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/slotpool/pkg/logger"
	"github.com/ajitpratap0/slotpool/pkg/pool"
)

const (
	bufferSize    = 4096
	maxBufferSize = 1024 * 1024 // buffers grown past this are shrunk on return
	poolCapacity  = 64
)

var (
	bufferPool     *pool.Pool[*bytes.Buffer]
	bufferPoolOnce sync.Once
)

func buffers() *pool.Pool[*bytes.Buffer] {
	bufferPoolOnce.Do(func() {
		p, err := pool.New(poolCapacity,
			pool.Constructor(func() *bytes.Buffer {
				return bytes.NewBuffer(make([]byte, 0, bufferSize))
			}),
			pool.WithName("json_buffers"),
			pool.WithExpansion(0.5, 300),
			pool.WithLazyPopulation(),
			pool.WithOverflowPolicy(pool.OverflowTransient),
			pool.WithLogger(logger.Get().Named("json")),
		)
		if err != nil {
			// Only reachable with invalid constants above.
			panic(err)
		}
		bufferPool = p
	})
	return bufferPool
}

// BufferStats returns a snapshot of the scratch buffer pool.
func BufferStats() pool.Stats {
	return buffers().Stats()
}

// GetBuffer gets an empty pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf, ok := buffers().Acquire()
	if !ok {
		// The pool overflows to transient buffers; this is a safety net.
		return bytes.NewBuffer(make([]byte, 0, bufferSize))
	}
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool. Foreign buffers may be adopted into
// spare capacity.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	if buf.Cap() > maxBufferSize {
		*buf = *bytes.NewBuffer(make([]byte, 0, bufferSize))
	}
	buf.Reset()
	buffers().Release(buf)
}

// Marshal is a high-performance drop-in replacement for json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a high-performance drop-in replacement for json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent is a high-performance replacement for json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

func newEncoder(w io.Writer) *gojson.Encoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// MarshalToWriter marshals v directly to w, followed by a newline.
func MarshalToWriter(w io.Writer, v interface{}) error {
	return newEncoder(w).Encode(v)
}

// MarshalToBuffer marshals v to a pooled buffer. The caller owns the buffer
// and should hand it back with PutBuffer.
func MarshalToBuffer(v interface{}) (*bytes.Buffer, error) {
	buf := GetBuffer()
	if err := newEncoder(buf).Encode(v); err != nil {
		PutBuffer(buf)
		return nil, err
	}
	return buf, nil
}

// MarshalMultiple marshals values into one byte slice, separated by separator.
func MarshalMultiple(values []interface{}, separator []byte) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	enc := newEncoder(buf)
	for i, v := range values {
		if i > 0 && separator != nil {
			buf.Write(separator)
		}

		if err := enc.Encode(v); err != nil {
			return nil, err
		}

		// Remove trailing newline added by Encode
		if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] == '\n' {
			buf.Truncate(buf.Len() - 1)
		}
	}

	// Copy out since the buffer goes back to the pool
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())

	return result, nil
}

// MarshalArray marshals values as a JSON array
func MarshalArray(values []interface{}) ([]byte, error) {
	if len(values) == 0 {
		return []byte("[]"), nil
	}

	buf := GetBuffer()
	defer PutBuffer(buf)

	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}

		data, err := gojson.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')

	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())

	return result, nil
}

// StreamingEncoder writes a sequence of values either as a JSON array or as
// line-delimited JSON.
type StreamingEncoder struct {
	writer      io.Writer
	encoder     *gojson.Encoder
	firstRecord bool
	isArray     bool
	pretty      bool
}

// NewStreamingEncoder creates a new streaming encoder
func NewStreamingEncoder(w io.Writer, isArray bool) (*StreamingEncoder, error) {
	se := &StreamingEncoder{
		writer:      w,
		encoder:     newEncoder(w),
		firstRecord: true,
		isArray:     isArray,
	}

	if isArray {
		if _, err := w.Write([]byte{'['}); err != nil {
			return nil, err
		}
	}

	return se, nil
}

// SetPretty enables pretty printing
func (se *StreamingEncoder) SetPretty(pretty bool, indent string) {
	se.pretty = pretty
	if pretty {
		se.encoder.SetIndent("", indent)
	}
}

// Encode encodes a single value
func (se *StreamingEncoder) Encode(v interface{}) error {
	if se.isArray {
		if !se.firstRecord {
			if _, err := se.writer.Write([]byte{','}); err != nil {
				return err
			}
		}
		se.firstRecord = false
	}

	return se.encoder.Encode(v)
}

// Close finalizes the encoding
func (se *StreamingEncoder) Close() error {
	if !se.isArray {
		return nil
	}
	_, err := se.writer.Write([]byte{']'})
	return err
}
