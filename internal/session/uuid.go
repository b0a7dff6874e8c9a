// Package session hands out identifiers that are unique for the lifetime of
// the running process. They are cheap comparable values meant to be used as
// map keys for strokes, curves and anything else that needs correlating
// across edits. Nothing here survives a restart.
package session

import (
	"encoding/binary"
	"strconv"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// UUID identifies one generation call. The zero value is the ungenerated
// sentinel and is never returned by Generate.
type UUID struct {
	v uint64
}

// Nil is the ungenerated sentinel.
var Nil UUID

// counter backs every Generator, so UUIDs are unique across the whole
// process no matter which generator handed them out.
var counter atomic.Uint64

func next() UUID {
	v := counter.Add(1)
	if v == 0 {
		// 2^64 generations wrapped the counter
		panic("session: uuid counter overflow")
	}
	return UUID{v: v}
}

// Generator hands out UUIDs from the process counter and keeps count of how
// many it issued.
type Generator struct {
	issued atomic.Uint64
}

// NewGenerator returns a generator that has issued nothing yet.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a UUID distinct from every UUID returned before in this
// process, by any generator. Safe for concurrent use.
func (g *Generator) Generate() UUID {
	g.issued.Add(1)
	return next()
}

// Issued reports how many UUIDs g has returned.
func (g *Generator) Issued() uint64 {
	return g.issued.Load()
}

var (
	defaultGenerator = NewGenerator()
	siteID           = uuid.NewString()
)

// Generate returns a new UUID from the process-wide generator.
func Generate() UUID {
	return defaultGenerator.Generate()
}

// SiteID is a random identifier for this process, used to tag data leaving
// it. Unlike UUID values it carries no ordering.
func SiteID() string {
	return siteID
}

// IsGenerated reports whether id came from a Generate call.
func IsGenerated(id UUID) bool {
	return id != Nil
}

// Equal reports whether a and b came from the same Generate call.
func Equal(a, b UUID) bool {
	return a == b
}

// Hash returns a well mixed 64-bit hash of id. Equal values hash equally.
func Hash(id UUID) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id.v)
	return xxhash.Sum64(buf[:])
}

// Hash32 folds Hash into 32 bits for containers that want a narrower key.
func Hash32(id UUID) uint32 {
	h := Hash(id)
	return uint32(h) ^ uint32(h>>32)
}

// IsGenerated is the method form of the package function.
func (id UUID) IsGenerated() bool { return IsGenerated(id) }

// Hash is the method form of the package function.
func (id UUID) Hash() uint64 { return Hash(id) }

func (id UUID) String() string {
	if id == Nil {
		return "session:nil"
	}
	return "session:" + strconv.FormatUint(id.v, 10)
}

// MarshalText lets UUIDs appear as JSON object keys and values.
func (id UUID) MarshalText() ([]byte, error) {
	return strconv.AppendUint(nil, id.v, 10), nil
}
