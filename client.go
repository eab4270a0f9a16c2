package hexahydrate

import "sync/atomic"

var clientIDSeq atomic.Uint64

// clientEntitySlot is the client's bookkeeping for one entity index: a
// nil handle means the slot has never been created, or has been fully
// reclaimed after a destroy went unacknowledged past its timeout.
// While handle is non-nil the slot still needs visiting on every Send,
// even once its entity has been cleared by a destroy/forget.
type clientEntitySlot[U any] struct {
	handle         *entityHandle[U]
	destroyTimeout *int
}

// Client is the replicating side of entity synchronisation. It mirrors
// a subset of the server's entities locally, driven entirely by
// frames handed to Receive; it never initiates entity creation on its
// own.
type Client[U any] struct {
	id       uint64
	registry Registry[U]
	entities [256]clientEntitySlot[U]
	states   [256]LocalState
	config   Config
}

// NewClient allocates a client bound to the given registry, used to
// reconstruct entities from their wire kind byte.
func NewClient[U any](registry Registry[U], config Config) *Client[U] {
	return &Client[U]{
		id:       clientIDSeq.Add(1),
		registry: registry,
		config:   config,
	}
}

// SetConfig overrides the client's current configuration.
func (c *Client[U]) SetConfig(config Config) {
	c.config = config
}

// Reset drops every locally mirrored entity without running Destroyed
// hooks and returns every touched slot to LocalUnknown. Call this when
// the underlying connection to the server is lost.
func (c *Client[U]) Reset() {
	for i := range c.entities {
		if c.entities[i].handle != nil {
			c.states[i].reset()
			c.entities[i] = clientEntitySlot[U]{}
		}
	}
}

// EntityGet returns the locally mirrored entity referenced by the
// token, or ok=false if the token is foreign or the slot is empty.
func (c *Client[U]) EntityGet(tok EntityToken) (Entity[U], bool) {
	if tok.OwnerID != c.id {
		return nil, false
	}
	h := c.entities[tok.Index].handle
	if h == nil || !h.isAlive() {
		return nil, false
	}
	return h.entity, true
}

// MapEntities runs callback over every locally mirrored, live entity,
// ascending by index.
func (c *Client[U]) MapEntities(callback func(EntityToken, Entity[U])) {
	c.WithEntities(callback)
}

// WithEntities runs callback over every locally mirrored, live entity,
// ascending by index.
func (c *Client[U]) WithEntities(callback func(EntityToken, Entity[U])) {
	for i := range c.entities {
		h := c.entities[i].handle
		if h != nil && h.isAlive() {
			callback(EntityToken{Index: uint8(i), OwnerID: c.id}, h.entity)
		}
	}
}

// UpdateEntitiesWith is the client's main per-tick update call. It
// runs callback on every locally mirrored live entity, and advances
// the destroy timeout for entities that were cleared locally but
// haven't yet had their destroy confirmation fully round-trip to the
// server — once that timeout expires, the slot is reclaimed, ready to
// mirror an unrelated entity the server may later assign to the same
// index.
func (c *Client[U]) UpdateEntitiesWith(callback func(EntityToken, Entity[U])) {
	for i := range c.entities {
		slot := &c.entities[i]
		if slot.handle == nil {
			continue
		}

		if slot.handle.isAlive() {
			callback(EntityToken{Index: uint8(i), OwnerID: c.id}, slot.handle.entity)
			continue
		}

		if slot.destroyTimeout == nil {
			t := c.config.HandleTimeoutTicks
			slot.destroyTimeout = &t
		}
		if *slot.destroyTimeout > 0 {
			*slot.destroyTimeout--
		}
		if *slot.destroyTimeout == 0 {
			c.states[i].reset()
			*slot = clientEntitySlot[U]{}
		}
	}
}

// Send returns zero or more frames reporting this client's handshake
// progress back to the server. Frames are no larger than
// maxBytesPerPacket, split only at entity boundaries. Slots that have
// never been touched by a create frame contribute nothing.
func (c *Client[U]) Send(maxBytesPerPacket int) [][]byte {
	packets := newPacketList(maxBytesPerPacket)
	for i := range c.entities {
		slot := &c.entities[i]
		if slot.handle == nil {
			continue
		}
		chunk := clientAsBytes(c.config, uint8(i), c.states[i], slot.handle.entity, &slot.handle.updateTick)
		packets.appendBytes(chunk)
	}
	return packets.frames()
}

// Receive consumes a frame produced by a Server's ConnectionSend for
// this client, advancing local state machines, instantiating newly
// announced entities via the registry, and merging update payloads.
func (c *Client[U]) Receive(data []byte) error {
	n := len(data)
	if n == 0 {
		return nil
	}
	if data[0] > serverOpcodeMax {
		return &InvalidPacketDataError{Bytes: data}
	}

	i := 0
	for i+1 < n {
		opByte, idx := data[i], data[i+1]
		i += 2

		op, ok := decodeServerOpcode(opByte)
		if !ok {
			return &RemainingPacketDataError{Bytes: append([]byte(nil), data[i:]...)}
		}

		slot := &c.entities[idx]
		state := &c.states[idx]

		switch op {
		case opSendCreateToClient:
			entityBytes, consumed, ok := deserializeEntityBytes(data[i:], 2)
			if !ok {
				return nil
			}
			i += consumed

			kind := entityBytes[0]
			payload := entityBytes[1:]

			if slot.handle == nil {
				if entity, ok := c.registry.EntityFromKindAndBytes(kind, payload); ok {
					state.create()
					slot.handle = newEntityHandle(entity)
				}
				break
			}

			// A handle already occupies this slot, alive or pending
			// acknowledgement of an earlier destroy. Replace it only
			// when the kind changed, or when we aren't still waiting
			// on our own confirmation of the previous create — a
			// duplicate create frame for the same pending entity is
			// ignored.
			existingKind := kind
			if slot.handle.entity != nil {
				existingKind = slot.handle.entity.Kind()
			}
			if kind != existingKind || *state != LocalCreate {
				if entity, ok := c.registry.EntityFromKindAndBytes(kind, payload); ok {
					slot.handle.replaceEntity(entity)
					slot.destroyTimeout = nil
					state.reset()
					state.create()
				}
			}

		case opConfirmClientCreate:
			if slot.handle != nil && state.accept() {
				slot.handle.create()
			}

		case opSendUpdateToClient:
			payload, consumed, ok := deserializeEntityBytes(data[i:], 1)
			if !ok {
				return nil
			}
			if slot.handle != nil {
				state.update()
				if *state == LocalUpdate && len(payload) > 0 {
					slot.handle.mergeBytes(nil, payload)
				}
			}
			i += consumed

		case opSendDestroyToClient:
			if slot.handle != nil {
				slot.handle.destroy()
			}

		case opSendForgetToClient:
			if slot.handle != nil {
				slot.handle.forget()
			}
		}
	}

	return nil
}
