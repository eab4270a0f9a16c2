package hexahydrate

// Wire opcodes -----------------------------------------------------------
//
// Every frame is a concatenation of tokens: a 1-byte opcode, a 1-byte
// entity index, and an opcode-dependent trailer. See spec.md §4.1 for
// the full table; the two enumerations below overlap in value (1, 3
// and 4 appear in both) and share the same byte stream, so they're
// distinguished only by which side is decoding.

// serverOpcode enumerates the tokens a Server emits and a Client
// decodes.
type serverOpcode uint8

const (
	opSendCreateToClient  serverOpcode = 0
	opConfirmClientCreate serverOpcode = 1
	// value 2 is intentionally unused on this side of the wire.
	opSendUpdateToClient serverOpcode = 3
	opSendDestroyToClient serverOpcode = 4
	opSendForgetToClient  serverOpcode = 5

	serverOpcodeMax uint8 = 5
)

func decodeServerOpcode(b uint8) (serverOpcode, bool) {
	switch serverOpcode(b) {
	case opSendCreateToClient, opConfirmClientCreate, opSendUpdateToClient,
		opSendDestroyToClient, opSendForgetToClient:
		return serverOpcode(b), true
	default:
		return 0, false
	}
}

// clientOpcode enumerates the tokens a Client emits and a Server
// decodes.
type clientOpcode uint8

const (
	opConfirmCreateToServer  clientOpcode = 1
	opAcceptServerUpdate     clientOpcode = 2
	opSendUpdateToServer     clientOpcode = 3
	opConfirmDestroyToServer clientOpcode = 4

	clientOpcodeMax uint8 = 4
)

func decodeClientOpcode(b uint8) (clientOpcode, bool) {
	switch clientOpcode(b) {
	case opConfirmCreateToServer, opAcceptServerUpdate, opSendUpdateToServer,
		opConfirmDestroyToServer:
		return clientOpcode(b), true
	default:
		return 0, false
	}
}

// deserializeEntityBytes reads a length-prefixed entity payload out of
// data, which must start at the length byte. overhead is the number of
// bytes consumed but not counted by the length field, the length byte
// itself included — 1 for a plain length-prefixed payload, 2 when a
// kind byte also precedes the payload. Returns the
// bytes after the length byte (including any header bytes covered by
// overhead, e.g. the kind byte) and the total number of bytes consumed
// starting at the length byte. ok is false when data is too short,
// meaning the trailing token is truncated and should be treated as end
// of frame.
func deserializeEntityBytes(data []byte, overhead int) (payload []byte, consumed int, ok bool) {
	n := len(data)
	if n < overhead {
		return nil, 0, false
	}
	length := int(data[0])
	if n < length+overhead {
		return nil, 0, false
	}
	return data[1 : length+overhead], length + overhead, true
}

// packetList packs a stream of per-entity byte chunks into frames no
// larger than maxBytesPerPacket, never splitting a chunk across two
// frames. A chunk larger than maxBytesPerPacket still gets emitted, as
// a single oversized frame of its own.
type packetList struct {
	maxBytesPerPacket int
	current           []byte
	packets           [][]byte
}

func newPacketList(maxBytesPerPacket int) *packetList {
	return &packetList{maxBytesPerPacket: maxBytesPerPacket}
}

func (p *packetList) appendBytes(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	if len(p.current)+len(chunk) <= p.maxBytesPerPacket {
		p.current = append(p.current, chunk...)
		return
	}
	if len(p.current) > 0 {
		p.packets = append(p.packets, p.current)
	}
	p.current = append([]byte(nil), chunk...)
}

func (p *packetList) frames() [][]byte {
	if len(p.current) > 0 {
		p.packets = append(p.packets, p.current)
		p.current = nil
	}
	if p.packets == nil {
		return [][]byte{}
	}
	return p.packets
}
