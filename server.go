package hexahydrate

import "sync/atomic"

// serverIDSeq hands out process-unique Server ids, the same way the
// reference implementation uses an atomically incremented counter —
// it only needs to be unique within this process.
var serverIDSeq atomic.Uint64

// serverEntitySlot is the server's bookkeeping for one entity index:
// the handle itself (nil when the slot is free), how many connections
// are still obliged to hear about it, and an optional countdown to
// forced reclamation.
type serverEntitySlot[U any] struct {
	handle          *entityHandle[U]
	connectionCount int
	destroyTimeout  *int
}

// Server is the authoritative side of entity synchronisation. It owns
// up to 256 entity slots and up to 256 connection slots, each carrying
// a 256-element RemoteState vector (one per entity slot). All methods
// are synchronous and non-blocking; a Server must not be shared across
// goroutines without external serialisation (see spec §5).
type Server[U any] struct {
	id          uint64
	entities    [256]serverEntitySlot[U]
	connections [256]*[256]RemoteState
	config      Config
}

// NewServer allocates a server with its fixed-size tables and assigns
// it a process-unique id.
func NewServer[U any](config Config) *Server[U] {
	return &Server[U]{
		id:     serverIDSeq.Add(1),
		config: config,
	}
}

// SetConfig overrides the server's current configuration.
func (s *Server[U]) SetConfig(config Config) {
	s.config = config
}

func (s *Server[U]) findFreeEntitySlot() (uint8, bool) {
	for i := 0; i < 256; i++ {
		if s.entities[i].handle == nil {
			return uint8(i), true
		}
	}
	return 0, false
}

func (s *Server[U]) findFreeConnectionSlot() (uint8, bool) {
	for i := 0; i < 256; i++ {
		if s.connections[i] == nil {
			return uint8(i), true
		}
	}
	return 0, false
}

func (s *Server[U]) activeConnectionCount() int {
	n := 0
	for i := 0; i < 256; i++ {
		if s.connections[i] != nil {
			n++
		}
	}
	return n
}

// EntityCreateWith constructs a new entity via factory and returns a
// token granting access to it. factory is only invoked once a free
// slot is actually available. The entity's Created hook fires
// immediately. Every currently active connection starts in the state
// needed to receive a create frame for it on its very next
// ConnectionSend.
func (s *Server[U]) EntityCreateWith(factory func() Entity[U]) (EntityToken, error) {
	idx, ok := s.findFreeEntitySlot()
	if !ok {
		return EntityToken{}, ErrAllEntityTokensInUse
	}

	handle := newEntityHandle(factory())
	handle.create()

	s.entities[idx] = serverEntitySlot[U]{
		handle:          handle,
		connectionCount: s.activeConnectionCount(),
	}

	return EntityToken{Index: idx, OwnerID: s.id}, nil
}

// EntityGet returns the entity referenced by the token, or
// ok=false if the token is foreign, the slot is free, or the entity
// has already been destroyed.
func (s *Server[U]) EntityGet(tok EntityToken) (Entity[U], bool) {
	if tok.OwnerID != s.id {
		return nil, false
	}
	h := s.entities[tok.Index].handle
	if h == nil || !h.isAlive() {
		return nil, false
	}
	return h.entity, true
}

// EntityDestroy destroys the entity referenced by the token, running
// its Destroyed hook exactly once. Destroying an already-destroyed
// entity is a no-op success. Returns ErrUnknownSenderToken if the
// token belongs to a different server instance or an empty slot.
func (s *Server[U]) EntityDestroy(tok EntityToken) error {
	if tok.OwnerID != s.id {
		return ErrUnknownSenderToken
	}
	slot := &s.entities[tok.Index]
	if slot.handle == nil {
		return ErrUnknownSenderToken
	}
	if slot.handle.isAlive() {
		slot.handle.destroy()
	}
	return nil
}

// MapEntities runs callback over every live entity, ascending by
// index. It is identical to WithEntities.
func (s *Server[U]) MapEntities(callback func(EntityToken, Entity[U])) {
	s.WithEntities(callback)
}

// WithEntities runs callback over every live entity, ascending by
// index.
func (s *Server[U]) WithEntities(callback func(EntityToken, Entity[U])) {
	for i := 0; i < 256; i++ {
		h := s.entities[i].handle
		if h != nil && h.isAlive() {
			callback(EntityToken{Index: uint8(i), OwnerID: s.id}, h.entity)
		}
	}
}

// UpdateEntitiesWith is the server's main per-tick update call. It
// runs callback on every live entity, advances destroy timeouts for
// destroyed entities still awaiting acknowledgement, and reclaims
// fully-released slots.
func (s *Server[U]) UpdateEntitiesWith(callback func(EntityToken, Entity[U])) {
	for i := 0; i < 256; i++ {
		slot := &s.entities[i]
		if slot.handle == nil {
			continue
		}

		if slot.handle.isAlive() {
			callback(EntityToken{Index: uint8(i), OwnerID: s.id}, slot.handle.entity)

		} else if slot.connectionCount > 0 {
			if slot.destroyTimeout == nil {
				t := s.config.HandleTimeoutTicks
				slot.destroyTimeout = &t
			}
			if *slot.destroyTimeout > 0 {
				*slot.destroyTimeout--
			}
			if *slot.destroyTimeout == 0 {
				slot.connectionCount = 0
			}
		}

		if !slot.handle.isAlive() && slot.connectionCount == 0 {
			for c := 0; c < 256; c++ {
				if s.connections[c] != nil {
					rs := &s.connections[c][i]
					rs.destroy()
					rs.resetDestroyed()
				}
			}
			*slot = serverEntitySlot[U]{}
		}
	}
}

// ConnectionAddWith registers a new connection and returns its token.
// Every currently active entity slot is stepped into Accept for this
// connection, so the connection's very first ConnectionSend promotes
// each into a fresh create.
func (s *Server[U]) ConnectionAddWith(factory func() U) (ConnectionToken[U], error) {
	idx, ok := s.findFreeConnectionSlot()
	if !ok {
		return ConnectionToken[U]{}, ErrAllConnectionTokensInUse
	}

	var remoteStates [256]RemoteState
	for i := 0; i < 256; i++ {
		if s.entities[i].handle != nil {
			remoteStates[i].accept()
		}
	}
	s.connections[idx] = &remoteStates

	return ConnectionToken[U]{Index: idx, OwnerID: s.id, UserData: factory()}, nil
}

// ConnectionRemove unregisters a connection, decrementing connection
// reference counts for every entity slot it had advanced past Accept
// for, and returns the user data the token carried.
func (s *Server[U]) ConnectionRemove(tok ConnectionToken[U]) (U, error) {
	var zero U
	if tok.OwnerID != s.id {
		return zero, ErrUnknownSenderToken
	}
	remoteStates := s.connections[tok.Index]
	if remoteStates == nil {
		return zero, ErrUnknownSenderToken
	}

	for i := 0; i < 256; i++ {
		if s.entities[i].handle != nil && remoteStates[i] > RemoteAccept {
			s.entities[i].connectionCount--
		}
	}

	s.connections[tok.Index] = nil
	return tok.UserData, nil
}

// ConnectionSend returns zero or more frames that synchronise entity
// state between the server and the given connection. Frames are no
// larger than maxBytesPerPacket, split only at entity boundaries.
func (s *Server[U]) ConnectionSend(tok ConnectionToken[U], maxBytesPerPacket int) ([][]byte, error) {
	if tok.OwnerID != s.id {
		return nil, ErrUnknownSenderToken
	}
	remoteStates := s.connections[tok.Index]
	if remoteStates == nil {
		return nil, ErrUnknownSenderToken
	}

	packets := newPacketList(maxBytesPerPacket)
	for i := 0; i < 256; i++ {
		slot := &s.entities[i]
		if slot.handle == nil {
			continue
		}
		rs := &remoteStates[i]

		if slot.handle.isAlive() {
			if rs.resetAccepted() {
				slot.connectionCount++
			}

			if !slot.handle.filter(&tok) {
				if *rs < RemoteForget {
					rs.forget()
				}
			} else {
				rs.resetForgotten()
			}

		} else if slot.connectionCount > 0 && rs.resetDestroyed() {
			slot.connectionCount--
		}

		if slot.connectionCount > 0 {
			chunk := serverAsBytes(s.config, uint8(i), &tok, *rs, slot.handle.entity, &slot.handle.updateTick)
			packets.appendBytes(chunk)
		}
	}

	return packets.frames(), nil
}

// ConnectionReceive consumes a frame produced by a Client's Send for
// this connection, advancing remote state machines and invoking
// MergeBytes where appropriate.
func (s *Server[U]) ConnectionReceive(tok ConnectionToken[U], data []byte) error {
	if tok.OwnerID != s.id {
		return &UnknownReceiverTokenError{Bytes: data}
	}
	remoteStates := s.connections[tok.Index]
	if remoteStates == nil {
		return &UnknownReceiverTokenError{Bytes: data}
	}

	n := len(data)
	if n == 0 {
		return nil
	}
	if data[0] < 1 || data[0] > clientOpcodeMax {
		return &InvalidPacketDataError{Bytes: data}
	}

	i := 0
	for i+1 < n {
		opByte, idx := data[i], data[i+1]
		i += 2

		op, ok := decodeClientOpcode(opByte)
		if !ok {
			return &RemainingPacketDataError{Bytes: append([]byte(nil), data[i:]...)}
		}

		rs := &remoteStates[idx]
		handle := s.entities[idx].handle

		switch op {
		case opConfirmCreateToServer:
			if handle != nil {
				rs.create()
			}

		case opAcceptServerUpdate:
			if handle != nil {
				rs.update()
			}

		case opSendUpdateToServer:
			payload, consumed, ok := deserializeEntityBytes(data[i:], 1)
			if !ok {
				return nil
			}
			if handle != nil && *rs == RemoteUpdate && len(payload) > 0 {
				handle.mergeBytes(&tok, payload)
			}
			i += consumed

		case opConfirmDestroyToServer:
			if handle != nil {
				if !handle.isAlive() {
					rs.destroy()
				} else {
					rs.forgotten()
				}
			}
		}
	}

	return nil
}
