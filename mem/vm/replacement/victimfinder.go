// Package replacement decides which resident page leaves memory when a page
// fault finds no free frame.
package replacement

import (
	"fmt"
	"math/rand"
	"strings"
)

// Kind names a replacement policy.
type Kind int

// The supported replacement policies.
const (
	Demand Kind = iota
	FIFO
	Random
)

func (k Kind) String() string {
	switch k {
	case Demand:
		return "demand"
	case FIFO:
		return "fifo"
	case Random:
		return "random"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Describe returns the human readable policy name used in banners.
func (k Kind) Describe() string {
	switch k {
	case Demand:
		return "Demand Paging"
	case FIFO:
		return "First in, First out"
	case Random:
		return "Random Replacement"
	default:
		return k.String()
	}
}

// ParseKind converts a policy name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "demand", "none", "0":
		return Demand, nil
	case "fifo", "1":
		return FIFO, nil
	case "random", "rand", "2":
		return Random, nil
	default:
		return 0, fmt.Errorf("unknown replacement policy %q", s)
	}
}

// OwnerView is the part of the frame ownership table a VictimFinder may read.
type OwnerView interface {
	NumFrames() int
	IsEmpty(frame int) bool
}

// A VictimFinder decides which frame should be evicted.
type VictimFinder interface {
	// Kind reports the policy implemented.
	Kind() Kind

	// FindVictim returns an occupied frame to evict.
	FindVictim(owners OwnerView) (int, error)

	// Loaded tells the finder a page was committed into frame.
	Loaded(frame int)

	// Released tells the finder frame left the resident set without being
	// chosen as a victim, e.g. because its process exited.
	Released(frame int)
}

// New creates the VictimFinder of the given kind. The random source is only
// used by the Random policy; nil means a fixed seed.
func New(kind Kind, rng *rand.Rand) (VictimFinder, error) {
	switch kind {
	case Demand:
		return NewDemandVictimFinder(), nil
	case FIFO:
		return NewFIFOVictimFinder(), nil
	case Random:
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}

		return NewRandomVictimFinder(rng), nil
	default:
		return nil, fmt.Errorf("unknown replacement policy %d", int(kind))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts anything ParseKind does.
func (k *Kind) UnmarshalText(text []byte) error {
	kind, err := ParseKind(string(text))
	if err != nil {
		return err
	}

	*k = kind

	return nil
}
