package camquad

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/mobile/exp/f32"
)

// Buffer errors.
var (
	// ErrEmptyBuffer is returned when a buffer is created without data.
	ErrEmptyBuffer = errors.New("camquad: empty buffer data")

	// ErrBufferCreate is returned when the backend refuses a buffer.
	ErrBufferCreate = errors.New("camquad: buffer creation failed")
)

// nativeOrder is the host byte order as one of the two values f32.Bytes
// accepts.
var nativeOrder = func() binary.ByteOrder {
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], 1)
	if buf[0] == 1 {
		return binary.LittleEndian
	}
	return binary.BigEndian
}()

// componentsPerVertex is the number of float32 components bound per vertex
// by the draw calls (x, y, z).
const componentsPerVertex = 3

// VertexBuffer is an immutable GPU buffer of native-ordered float32 vertex
// components.
type VertexBuffer struct {
	backend Backend
	handle  Buffer
	data    []float32
}

// NewVertexBuffer uploads data to a new vertex buffer on b.
// The slice is copied; later changes to data are not observed.
func NewVertexBuffer(b Backend, data []float32) (*VertexBuffer, error) {
	if b == nil {
		return nil, ErrNilBackend
	}
	if len(data) == 0 {
		return nil, ErrEmptyBuffer
	}
	h := b.CreateBuffer(BufferVertex, f32.Bytes(nativeOrder, data...))
	if !h.Valid() {
		return nil, fmt.Errorf("%w: %d floats", ErrBufferCreate, len(data))
	}
	return &VertexBuffer{
		backend: b,
		handle:  h,
		data:    append([]float32(nil), data...),
	}, nil
}

// Handle returns the backend buffer handle.
func (v *VertexBuffer) Handle() Buffer {
	if v == nil {
		return InvalidBuffer
	}
	return v.handle
}

// Len returns the number of float32 components stored.
func (v *VertexBuffer) Len() int {
	if v == nil {
		return 0
	}
	return len(v.data)
}

// VertexCount returns the number of xyz vertices stored.
func (v *VertexBuffer) VertexCount() int {
	return v.Len() / componentsPerVertex
}

// Data returns a copy of the float components.
func (v *VertexBuffer) Data() []float32 {
	if v == nil {
		return nil
	}
	return append([]float32(nil), v.data...)
}

// Release deletes the GPU buffer. Safe to call more than once.
func (v *VertexBuffer) Release() {
	if v == nil || !v.handle.Valid() {
		return
	}
	v.backend.DeleteBuffer(v.handle)
	v.handle = InvalidBuffer
}

// IndexBuffer is an immutable GPU buffer of native-ordered uint16 triangle
// indices.
type IndexBuffer struct {
	backend Backend
	handle  Buffer
	data    []uint16
}

// NewIndexBuffer uploads data to a new index buffer on b.
func NewIndexBuffer(b Backend, data []uint16) (*IndexBuffer, error) {
	if b == nil {
		return nil, ErrNilBackend
	}
	if len(data) == 0 {
		return nil, ErrEmptyBuffer
	}
	h := b.CreateBuffer(BufferIndex, uint16Bytes(data))
	if !h.Valid() {
		return nil, fmt.Errorf("%w: %d indices", ErrBufferCreate, len(data))
	}
	return &IndexBuffer{
		backend: b,
		handle:  h,
		data:    append([]uint16(nil), data...),
	}, nil
}

// Handle returns the backend buffer handle.
func (ib *IndexBuffer) Handle() Buffer {
	if ib == nil {
		return InvalidBuffer
	}
	return ib.handle
}

// Len returns the number of indices stored.
func (ib *IndexBuffer) Len() int {
	if ib == nil {
		return 0
	}
	return len(ib.data)
}

// Data returns a copy of the indices.
func (ib *IndexBuffer) Data() []uint16 {
	if ib == nil {
		return nil
	}
	return append([]uint16(nil), ib.data...)
}

// Release deletes the GPU buffer. Safe to call more than once.
func (ib *IndexBuffer) Release() {
	if ib == nil || !ib.handle.Valid() {
		return
	}
	ib.backend.DeleteBuffer(ib.handle)
	ib.handle = InvalidBuffer
}

// uint16Bytes packs indices in native byte order.
func uint16Bytes(data []uint16) []byte {
	out := make([]byte, len(data)*2)
	for i, v := range data {
		binary.NativeEndian.PutUint16(out[i*2:], v)
	}
	return out
}
