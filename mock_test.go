package hexahydrate

import "sync"

// testUserData is the per-connection payload used throughout the core
// test suite, standing in for whatever a host would actually attach
// (an address, a session id, ...).
type testUserData struct {
	Value uint8
}

// testStat counts every hook invocation on a testEntity so a test can
// assert exactly what fired and how often.
type testStat struct {
	mu                  sync.Mutex
	New                 int
	CreatedCalls        int
	DestroyedCalls      int
	PartCalls           int
	MergeCalls          int
	PartBytesValue      []byte
	PartBytesOK         bool
	MergeBytesValue     []byte
	FilterForConnection bool
}

// testEntity is the one-kind mock used by most scenario tests. Its
// ToBytes/PartBytes/MergeBytes shapes mirror the literal byte
// sequences used throughout the scenario tests below.
type testEntity struct {
	EntityBase[testUserData]
	stats *testStat
}

func newTestEntity(stats *testStat) *testEntity {
	stats.New++
	return &testEntity{stats: stats}
}

func (e *testEntity) Kind() uint8 { return 1 }

func (e *testEntity) Created() { e.stats.CreatedCalls++ }

func (e *testEntity) Destroyed() { e.stats.DestroyedCalls++ }

func (e *testEntity) Filter(*ConnectionToken[testUserData]) bool {
	return !e.stats.FilterForConnection
}

func (e *testEntity) ToBytes(peer *ConnectionToken[testUserData]) []byte {
	return []byte{255, 128, peer.UserData.Value}
}

func (e *testEntity) PartBytes(*ConnectionToken[testUserData]) ([]byte, bool) {
	e.stats.PartCalls++
	v, ok := e.stats.PartBytesValue, e.stats.PartBytesOK
	e.stats.PartBytesOK = false
	return v, ok
}

func (e *testEntity) MergeBytes(_ *ConnectionToken[testUserData], data []byte) {
	e.stats.MergeBytesValue = data
	e.stats.MergeCalls++
}

// testEntityTwo is a second kind, used to exercise registry dispatch
// and the re-create/replace policy on mismatched kinds.
type testEntityTwo struct {
	EntityBase[testUserData]
	stats *testStat
}

func newTestEntityTwo(stats *testStat) *testEntityTwo {
	return &testEntityTwo{stats: stats}
}

func (e *testEntityTwo) Kind() uint8 { return 2 }

func (e *testEntityTwo) Created() { e.stats.CreatedCalls++ }

func (e *testEntityTwo) Destroyed() { e.stats.DestroyedCalls++ }

func (e *testEntityTwo) ToBytes(peer *ConnectionToken[testUserData]) []byte {
	return []byte{255, 128, peer.UserData.Value}
}

func (e *testEntityTwo) PartBytes(*ConnectionToken[testUserData]) ([]byte, bool) {
	e.stats.PartCalls++
	return nil, false
}

func (e *testEntityTwo) MergeBytes(_ *ConnectionToken[testUserData], data []byte) {
	e.stats.MergeBytesValue = data
	e.stats.MergeCalls++
}

// testRegistry dispatches kind 1 to testEntity and kind 2 to
// testEntityTwo, both wired to the same stats block so a test can
// observe hook calls regardless of which kind the server actually
// sent.
func testRegistry(stats *testStat) Registry[testUserData] {
	return RegistryFunc[testUserData](func(kind uint8, data []byte) (Entity[testUserData], bool) {
		switch kind {
		case 1:
			return newTestEntity(stats), true
		case 2:
			return newTestEntityTwo(stats), true
		default:
			return nil, false
		}
	})
}
