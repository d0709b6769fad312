/*
@Description: codec configuration
@Language: Go 1.23.4
*/

package fecgo

import (
	"time"

	"fecgo/galois"
)

// CodeType selects whether admitted sources are transmitted verbatim
// in addition to repairs (Systematic) or only ever recovered from
// repairs (NonSystematic).
type CodeType uint8

const (
	// Systematic emits every admitted source as-is, then periodically a repair.
	Systematic CodeType = iota
	// NonSystematic emits only repairs; sources are never sent directly.
	NonSystematic
)

func (c CodeType) String() string {
	if c == NonSystematic {
		return "non_systematic"
	}
	return "systematic"
}

// unboundedWindow mirrors the C++ reference's std::numeric_limits<size_t>::max()
// default for an unbounded encoder window.
const unboundedWindow = ^uint(0)

// Configuration holds every tunable exposed by the codec (spec §6).
// Zero-value Configuration is not meaningful on its own; use
// DefaultConfiguration and override individual fields, the way the
// teacher repo's `Config` was built up field by field.
type Configuration struct {
	// GaloisFieldSize selects the field the codec mixes symbols over.
	// Must be one of 4, 8, 16 or 32.
	GaloisFieldSize galois.Size

	// CodeType selects systematic vs. non-systematic transmission.
	CodeType CodeType

	// Rate is how many admitted sources are sent between repairs.
	Rate uint

	// WindowSize bounds how many un-acked sources the encoder retains.
	// Zero means unbounded.
	WindowSize uint

	// InOrder selects whether the decoder delivers sources strictly in
	// ascending id order (true) or as soon as each becomes available
	// (false).
	InOrder bool

	// Adaptive enables loss-driven adjustment of the effective repair
	// rate from ack feedback.
	Adaptive bool

	// AckFrequency is the maximum time the decoder waits before
	// sending an ack, regardless of packet count. Zero disables
	// time-based acks.
	AckFrequency time.Duration

	// AckNbPackets is the number of sources+repairs received that
	// triggers an immediate ack.
	AckNbPackets uint16
}

// DefaultConfiguration returns the spec's documented defaults (§6).
func DefaultConfiguration() Configuration {
	return Configuration{
		GaloisFieldSize: galois.Size8,
		CodeType:        Systematic,
		Rate:            5,
		WindowSize:      0,
		InOrder:         true,
		Adaptive:        true,
		AckFrequency:    100 * time.Millisecond,
		AckNbPackets:    50,
	}
}

// effectiveWindow returns the configured window size, or "unbounded"
// represented as the maximum uint, matching the original's
// std::numeric_limits<size_t>::max() sentinel.
func (c Configuration) effectiveWindow() uint {
	if c.WindowSize == 0 {
		return unboundedWindow
	}
	return c.WindowSize
}
