package main

import (
	"encoding/binary"
	"math"
	"sync"

	hexahydrate "github.com/adred-codev/hexahydrate"
)

// connUserData is the per-connection data the demo server attaches
// to each ConnectionToken. A real host would carry auth identity or
// peer address here; the demo only needs a label for logging.
type connUserData struct {
	RemoteAddr string
}

const positionKind uint8 = 1

// position is a minimal replicated entity: a 2D point that drifts and
// is synced to every connection that hasn't filtered it out.
type position struct {
	hexahydrate.EntityBase[connUserData]

	mu   sync.Mutex
	x, y float32
	dirty bool
}

func newPosition(x, y float32) *position {
	return &position{x: x, y: y, dirty: true}
}

func (p *position) Kind() uint8 { return positionKind }

func (p *position) ToBytes(*hexahydrate.ConnectionToken[connUserData]) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return encodePosition(p.x, p.y)
}

func (p *position) PartBytes(*hexahydrate.ConnectionToken[connUserData]) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.dirty {
		return nil, false
	}
	p.dirty = false
	return encodePosition(p.x, p.y), true
}

func (p *position) MergeBytes(_ *hexahydrate.ConnectionToken[connUserData], data []byte) {
	x, y, ok := decodePosition(data)
	if !ok {
		return
	}
	p.mu.Lock()
	p.x, p.y = x, y
	p.mu.Unlock()
}

// Move updates the entity's coordinates and marks it dirty so the
// next PartBytes call reports a change.
func (p *position) Move(dx, dy float32) {
	p.mu.Lock()
	p.x += dx
	p.y += dy
	p.dirty = true
	p.mu.Unlock()
}

func encodePosition(x, y float32) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], math.Float32bits(x))
	binary.BigEndian.PutUint32(buf[4:8], math.Float32bits(y))
	return buf
}

func decodePosition(data []byte) (x, y float32, ok bool) {
	if len(data) < 8 {
		return 0, 0, false
	}
	x = math.Float32frombits(binary.BigEndian.Uint32(data[0:4]))
	y = math.Float32frombits(binary.BigEndian.Uint32(data[4:8]))
	return x, y, true
}

// positionRegistry lets a client turn incoming (kind, bytes) pairs
// back into position entities.
func positionRegistry(kind uint8, data []byte) (hexahydrate.Entity[connUserData], bool) {
	if kind != positionKind {
		return nil, false
	}
	x, y, ok := decodePosition(data)
	if !ok {
		return nil, false
	}
	return newPosition(x, y), true
}
