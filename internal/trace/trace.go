// Package trace records render buffers handed to a consumer as a stream of
// CBOR frames and plays them back.
package trace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/tech-paws/vm/internal/protocol/cmdlog"
	"github.com/tech-paws/vm/internal/vm"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("trace: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Frame is one recorded render buffer.
type Frame struct {
	VM       string `cbor:"1,keyasint"`
	Seq      uint64 `cbor:"2,keyasint"`
	Module   string `cbor:"3,keyasint"`
	UnixNano int64  `cbor:"4,keyasint"`
	Commands uint64 `cbor:"5,keyasint"`
	Log      []byte `cbor:"6,keyasint"`
}

// Buffer returns the recorded log as a consumer buffer.
func (f Frame) Buffer() cmdlog.Buffer {
	return cmdlog.Buffer{Bytes: f.Log, Size: uint64(len(f.Log))}
}

func (f Frame) Time() time.Time {
	return time.Unix(0, f.UnixNano)
}

// Recorder is a vm.RenderConsumer that writes every buffer to w before
// passing it on to next.
type Recorder struct {
	vmID  string
	order binary.ByteOrder
	next  vm.RenderConsumer
	clock func() time.Time

	mu     sync.Mutex
	enc    *cbor.Encoder
	seq    uint64
	frames uint64
	bytes  uint64
}

// NewRecorder returns a recorder tagging frames with vmID. order is the
// VM's log byte order (nil selects little-endian). next may be nil.
func NewRecorder(w io.Writer, vmID string, order binary.ByteOrder, next vm.RenderConsumer) *Recorder {
	if next == nil {
		next = vm.DiscardRender
	}
	return &Recorder{
		vmID:  vmID,
		order: order,
		next:  next,
		clock: time.Now,
		enc:   cborEncMode.NewEncoder(w),
	}
}

func (r *Recorder) ConsumeRender(moduleID string, buf cmdlog.Buffer) error {
	log := buf.Bytes[:buf.Size]
	r.mu.Lock()
	r.seq++
	frame := Frame{
		VM:       r.vmID,
		Seq:      r.seq,
		Module:   moduleID,
		UnixNano: r.clock().UnixNano(),
		Commands: buf.Commands(r.order),
		Log:      log,
	}
	err := r.enc.Encode(frame)
	if err == nil {
		r.frames++
		r.bytes += buf.Size
	}
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("trace: record frame %d: %w", frame.Seq, err)
	}
	return r.next.ConsumeRender(moduleID, buf)
}

// Stats returns frames and log bytes recorded so far.
func (r *Recorder) Stats() (frames, bytes uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames, r.bytes
}

// Reader decodes frames written by a Recorder.
type Reader struct {
	dec *cbor.Decoder
}

func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (Frame, error) {
	var f Frame
	if err := r.dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("trace: decode frame: %w", err)
	}
	return f, nil
}

// Replay feeds every frame in r to consumer in order and returns how many
// frames were replayed.
func Replay(r io.Reader, consumer vm.RenderConsumer) (int, error) {
	tr := NewReader(r)
	n := 0
	for {
		f, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if err := consumer.ConsumeRender(f.Module, f.Buffer()); err != nil {
			return n, fmt.Errorf("trace: replay frame %d: %w", f.Seq, err)
		}
		n++
	}
}
