// Package frame implements the wire-level framing of the client protocol:
// length-prefixed frames with optional block encryption and the
// massive-packet fragmentation subprotocol. It converts a raw byte stream
// into typed frames and back; interpreting frame payloads is left to the
// protocol layer above.
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/arvidian/sro-agent/pkg/security"
)

// Frame is one framed unit on the wire. The concrete variants are Packet,
// MassiveHeader and MassiveContainer.
type Frame interface {
	// ContentSize returns the size of the frame body excluding the opcode,
	// count and crc bytes, as carried in the length word.
	ContentSize() int

	isFrame()
}

// Packet is a regular frame carrying one protocol packet.
type Packet struct {
	Count     byte
	CRC       byte
	Opcode    uint16
	Encrypted bool
	Data      []byte
}

// MassiveHeader announces a sequence of containers that together carry one
// logical packet of the contained opcode.
type MassiveHeader struct {
	Count          byte
	CRC            byte
	InnerOpcode    uint16
	ContainerCount uint16
}

// MassiveContainer carries one fragment of a massive packet.
type MassiveContainer struct {
	Count byte
	CRC   byte
	Data  []byte
}

func (p *Packet) isFrame()           {}
func (h *MassiveHeader) isFrame()    {}
func (c *MassiveContainer) isFrame() {}

// ContentSize of a packet is its payload length.
func (p *Packet) ContentSize() int { return len(p.Data) }

// ContentSize of a massive header is fixed: one mode byte, the container
// count, the inner opcode and a terminator byte.
func (h *MassiveHeader) ContentSize() int { return massiveHeaderBodySize }

// ContentSize of a container is the mode byte plus the fragment.
func (c *MassiveContainer) ContentSize() int { return 1 + len(c.Data) }

// Parse reads one frame from the start of data. It returns the number of
// bytes consumed and the parsed frame. When data does not yet contain a full
// frame, it returns ErrIncomplete and consumes nothing. Encrypted frames are
// decrypted through sec; a decryption failure is fatal for the connection.
func Parse(data []byte, sec *security.Security) (int, Frame, error) {
	if len(data) < lengthSize+2 {
		return 0, nil, ErrIncomplete
	}

	length := binary.LittleEndian.Uint16(data[0:2])
	encrypted := length&0x8000 != 0
	contentSize := int(length & 0x7FFF)

	totalSize := contentSize + innerHeaderSize
	if encrypted {
		totalSize = security.EncryptedLength(totalSize)
	}

	body := data[lengthSize:]
	if len(body) < totalSize {
		return 0, nil, ErrIncomplete
	}
	body = body[:totalSize]
	consumed := lengthSize + totalSize

	if encrypted {
		if sec == nil {
			return 0, nil, ErrMissingSecurity
		}
		decrypted, err := sec.Decrypt(body)
		if err != nil {
			return 0, nil, fmt.Errorf("frame: decrypting frame body: %w", err)
		}
		body = decrypted
	}

	opcode := binary.LittleEndian.Uint16(body[0:2])
	count := body[2]
	crc := body[3]
	payload := body[innerHeaderSize : innerHeaderSize+contentSize]

	if opcode != MassiveOpcode {
		return consumed, &Packet{
			Count:     count,
			CRC:       crc,
			Opcode:    opcode,
			Encrypted: encrypted,
			Data:      payload,
		}, nil
	}

	if len(payload) < 1 {
		return 0, nil, ErrMalformedFrame
	}
	if payload[0] == 1 {
		if len(payload) < massiveHeaderBodySize {
			return 0, nil, ErrMalformedFrame
		}
		return consumed, &MassiveHeader{
			Count:          count,
			CRC:            crc,
			ContainerCount: binary.LittleEndian.Uint16(payload[1:3]),
			InnerOpcode:    binary.LittleEndian.Uint16(payload[3:5]),
		}, nil
	}
	return consumed, &MassiveContainer{
		Count: count,
		CRC:   crc,
		Data:  payload[1:],
	}, nil
}

// Encode serializes a frame into its wire representation. Frames flagged
// encrypted are padded to the cipher block size and encrypted through sec.
func Encode(f Frame, sec *security.Security) ([]byte, error) {
	switch frame := f.(type) {
	case *Packet:
		return encodePacket(frame, sec)
	case *MassiveHeader:
		out := make([]byte, 0, lengthSize+innerHeaderSize+massiveHeaderBodySize)
		out = appendHeader(out, uint16(frame.ContentSize()), MassiveOpcode, frame.Count, frame.CRC)
		out = append(out, 1)
		out = binary.LittleEndian.AppendUint16(out, frame.ContainerCount)
		out = binary.LittleEndian.AppendUint16(out, frame.InnerOpcode)
		out = append(out, 0)
		return out, nil
	case *MassiveContainer:
		if frame.ContentSize() > MaxPayloadSize {
			return nil, ErrPayloadTooLarge
		}
		out := make([]byte, 0, lengthSize+innerHeaderSize+frame.ContentSize())
		out = appendHeader(out, uint16(frame.ContentSize()), MassiveOpcode, frame.Count, frame.CRC)
		out = append(out, 0)
		out = append(out, frame.Data...)
		return out, nil
	default:
		return nil, ErrMalformedFrame
	}
}

func encodePacket(p *Packet, sec *security.Security) ([]byte, error) {
	if len(p.Data) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	if !p.Encrypted {
		out := make([]byte, 0, lengthSize+innerHeaderSize+len(p.Data))
		out = appendHeader(out, uint16(len(p.Data)), p.Opcode, p.Count, p.CRC)
		out = append(out, p.Data...)
		return out, nil
	}

	if sec == nil {
		return nil, ErrMissingSecurity
	}

	content := make([]byte, 0, innerHeaderSize+len(p.Data))
	content = binary.LittleEndian.AppendUint16(content, p.Opcode)
	content = append(content, p.Count, p.CRC)
	content = append(content, p.Data...)

	encrypted, err := sec.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("frame: encrypting frame body: %w", err)
	}

	out := make([]byte, 0, lengthSize+len(encrypted))
	out = binary.LittleEndian.AppendUint16(out, uint16(len(p.Data))|0x8000)
	out = append(out, encrypted...)
	return out, nil
}

func appendHeader(out []byte, length, opcode uint16, count, crc byte) []byte {
	out = binary.LittleEndian.AppendUint16(out, length)
	out = binary.LittleEndian.AppendUint16(out, opcode)
	out = append(out, count, crc)
	return out
}
