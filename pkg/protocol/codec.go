// Package protocol implements the typed packet layer: declarative
// (de)serialization of protocol messages identified by 16-bit opcodes.
// Higher layers deal exclusively in packet structs; the byte layout lives
// here and in the per-packet Encode/Decode methods.
package protocol

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf16"
)

// Sequence termination markers. Dynamic sequences are either
// length-prefixed, element-flagged ("has-more": each element preceded by
// SeqElement, ended by SeqEnd; "break": ended by SeqBreak instead) or run to
// the end of the enclosing frame.
const (
	SeqEnd     byte = 0
	SeqElement byte = 1
	SeqBreak   byte = 2
)

// Writer accumulates the little-endian wire form of a packet. Writes cannot
// fail; the buffer grows as needed.
type Writer struct {
	buf bytes.Buffer
}

// Bytes returns the accumulated wire bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

func (w *Writer) U8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *Writer) Bool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) I16(v int16) { w.U16(uint16(v)) }
func (w *Writer) I32(v int32) { w.U32(uint32(v)) }
func (w *Writer) I64(v int64) { w.U64(uint64(v)) }

func (w *Writer) F32(v float32) {
	w.U32(math.Float32bits(v))
}

func (w *Writer) F64(v float64) {
	w.U64(math.Float64bits(v))
}

// String writes a UTF-8 string preceded by its u16 byte count.
func (w *Writer) String(s string) {
	w.U16(uint16(len(s)))
	w.buf.WriteString(s)
}

// UTF16String writes a string as UTF-16 code units preceded by their u16
// count. Used for the few messages the client renders in its wide-char path.
func (w *Writer) UTF16String(s string) {
	units := utf16.Encode([]rune(s))
	w.U16(uint16(len(units)))
	for _, u := range units {
		w.U16(u)
	}
}

// Raw appends bytes verbatim.
func (w *Writer) Raw(data []byte) {
	w.buf.Write(data)
}

// Reader consumes the little-endian wire form of a packet. The first failed
// read latches an error; subsequent reads return zero values and the error is
// reported by Err. This keeps multi-field decoders free of per-read checks.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.Remaining() < n {
		r.err = ErrUnexpectedEOF
		return nil
	}
	out := r.data[r.off : r.off+n]
	r.off += n
	return out
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Bool() bool {
	return r.U8() == 1
}

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) I16() int16 { return int16(r.U16()) }
func (r *Reader) I32() int32 { return int32(r.U32()) }
func (r *Reader) I64() int64 { return int64(r.U64()) }

func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

func (r *Reader) F64() float64 {
	return math.Float64frombits(r.U64())
}

// String reads a UTF-8 string preceded by its u16 byte count.
func (r *Reader) String() string {
	n := int(r.U16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

// UTF16String reads a u16-counted UTF-16 string.
func (r *Reader) UTF16String() string {
	n := int(r.U16())
	units := make([]uint16, 0, n)
	for i := 0; i < n; i++ {
		units = append(units, r.U16())
	}
	if r.err != nil {
		return ""
	}
	return string(utf16.Decode(units))
}

// Raw reads n bytes verbatim.
func (r *Reader) Raw(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// Rest reads all remaining bytes, for sequences whose length is implied by
// the enclosing frame.
func (r *Reader) Rest() []byte {
	return r.Raw(r.Remaining())
}
