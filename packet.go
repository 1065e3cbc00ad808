package gosio

import (
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// json is the structured-value codec used for packet payloads.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PacketType represents Socket.IO packet types
type PacketType byte

const (
	PacketTypeConnect PacketType = iota
	PacketTypeDisconnect
	PacketTypeEvent
	PacketTypeAck
	PacketTypeError
	PacketTypeBinaryEvent
	PacketTypeBinaryAck
)

// ParsePacketType maps a wire digit to its packet type.
func ParsePacketType(c byte) (PacketType, error) {
	switch c {
	case '0':
		return PacketTypeConnect, nil
	case '1':
		return PacketTypeDisconnect, nil
	case '2':
		return PacketTypeEvent, nil
	case '3':
		return PacketTypeAck, nil
	case '4':
		return PacketTypeError, nil
	case '5':
		return PacketTypeBinaryEvent, nil
	case '6':
		return PacketTypeBinaryAck, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPacketType, c)
	}
}

// Digit returns the wire digit of the packet type.
func (pt PacketType) Digit() (byte, error) {
	switch pt {
	case PacketTypeConnect:
		return '0', nil
	case PacketTypeDisconnect:
		return '1', nil
	case PacketTypeEvent:
		return '2', nil
	case PacketTypeAck:
		return '3', nil
	case PacketTypeError:
		return '4', nil
	case PacketTypeBinaryEvent:
		return '5', nil
	case PacketTypeBinaryAck:
		return '6', nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownPacketType, byte(pt))
	}
}

// IsBinary reports whether the type carries binary attachments.
func (pt PacketType) IsBinary() bool {
	return pt == PacketTypeBinaryEvent || pt == PacketTypeBinaryAck
}

// Packet represents a Socket.IO packet
type Packet struct {
	Type      PacketType
	Namespace string
	AckID     *uint64
	// Data is the decoded JSON payload; nil means no payload. A JSON null
	// payload also decodes to nil, so it is re-encoded without a payload.
	Data interface{}
}

// NewPacket returns a packet for the default namespace.
func NewPacket(pt PacketType) *Packet {
	return &Packet{Type: pt, Namespace: "/"}
}

// WithAckID sets the ack id and returns the packet.
func (p *Packet) WithAckID(id uint64) *Packet {
	p.AckID = &id
	return p
}

// Encode encodes a Socket.IO packet to string
func (p *Packet) Encode() (string, error) {
	var builder strings.Builder

	digit, err := p.Type.Digit()
	if err != nil {
		return "", err
	}
	builder.WriteByte(digit)

	// Namespace (if not default)
	if p.Namespace != "" && p.Namespace != "/" {
		if _, err := ParseNamespaceName(p.Namespace); err != nil {
			return "", err
		}
		builder.WriteString(p.Namespace)
		builder.WriteByte(',')
	}

	if p.AckID != nil {
		builder.WriteString(strconv.FormatUint(*p.AckID, 10))
	}

	if p.Data != nil {
		jsonData, err := json.Marshal(p.Data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		builder.Write(jsonData)
	}

	return builder.String(), nil
}

// DecodePacket decodes a Socket.IO packet from string.
//
// The grammar is <type>[<namespace>,][<ack id>][<json>]. A digit run right
// after the namespace segment is always read as the ack id, so a payload that
// is a bare JSON number cannot follow the namespace directly.
func DecodePacket(data string) (*Packet, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	pt, err := ParsePacketType(data[0])
	if err != nil {
		return nil, err
	}
	if pt.IsBinary() {
		return nil, fmt.Errorf("%w: type %d", ErrUnsupportedBinaryPacket, pt)
	}

	packet := &Packet{
		Type:      pt,
		Namespace: "/",
	}
	pos := 1

	if pos < len(data) && data[pos] == '/' {
		end := strings.IndexByte(data[pos:], ',')
		if end == -1 {
			packet.Namespace = data[pos:]
			return packet, nil
		}
		packet.Namespace = data[pos : pos+end]
		pos += end + 1
	}

	if pos < len(data) && isDigit(data[pos]) {
		end := pos
		for end < len(data) && isDigit(data[end]) {
			end++
		}
		id, err := strconv.ParseUint(data[pos:end], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAckID, data[pos:end])
		}
		packet.AckID = &id
		pos = end
	}

	if pos < len(data) {
		if err := json.Unmarshal([]byte(data[pos:]), &packet.Data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}

	return packet, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// String returns the packet type as a string
func (pt PacketType) String() string {
	switch pt {
	case PacketTypeConnect:
		return "connect"
	case PacketTypeDisconnect:
		return "disconnect"
	case PacketTypeEvent:
		return "event"
	case PacketTypeAck:
		return "ack"
	case PacketTypeError:
		return "error"
	case PacketTypeBinaryEvent:
		return "binary_event"
	case PacketTypeBinaryAck:
		return "binary_ack"
	default:
		return "unknown(" + strconv.Itoa(int(pt)) + ")"
	}
}
