package gate

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDGenerator produces flow ids.
type IDGenerator interface {
	Generate() string
}

// ULIDGenerator generates time-sortable ULIDs. Safe for concurrent use.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy *rand.Rand
}

// NewULIDGenerator returns a generator seeded from the clock.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{entropy: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// FixedGenerator returns predetermined ids, then "flow-N" once they run out.
// Used for deterministic output in tests.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator returns a generator yielding ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.idx
	g.idx++
	if i < len(g.ids) {
		return g.ids[i]
	}
	return "flow-" + strconv.Itoa(i)
}
