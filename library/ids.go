package library

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// DefaultIDPrefix is prepended to generated member IDs.
const DefaultIDPrefix = "MEM"

var (
	_ IDGenerator = RandomIDs{}
	_ IDGenerator = (*SequentialIDs)(nil)
)

// IDGenerator hands out member identifiers.
type IDGenerator interface {
	NewID() string
}

// RandomIDs derives IDs such as MEM1A2B3C4D from a random UUID.
type RandomIDs struct {
	Prefix string
}

func (g RandomIDs) NewID() string {
	u := uuid.New()
	return g.Prefix + strings.ToUpper(hex.EncodeToString(u[:4]))
}

// SequentialIDs counts upwards: MEM00001, MEM00002, ...
type SequentialIDs struct {
	Prefix string
	next   int
}

func (g *SequentialIDs) NewID() string {
	g.next++
	return fmt.Sprintf("%s%05d", g.Prefix, g.next)
}

// NewIDGenerator maps a configured scheme ("random" or "sequential") to a generator.
func NewIDGenerator(scheme, prefix string) (IDGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", "random":
		return RandomIDs{Prefix: prefix}, nil
	case "sequential":
		return &SequentialIDs{Prefix: prefix}, nil
	default:
		return nil, fmt.Errorf("unknown member id scheme %q", scheme)
	}
}
