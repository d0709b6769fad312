/*
@Description: receiver-side state: source/repair intake, delivery, ack generation
@Language: Go 1.23.4
*/

package fecgo

import (
	"encoding/binary"
	"sort"
	"sync/atomic"
	"time"

	"fecgo/galois"
)

// decoderCore is the receiver-side half of the codec (spec §4.5):
// incremental Gaussian elimination over retained repairs, in-order or
// out-of-order delivery, and ack bookkeeping.
type decoderCore struct {
	field    galois.Field
	cfg      Configuration
	pk       *packetizer
	deliver  deliverFunc

	// sources holds both not-yet-delivered buffered sources and
	// already-delivered sources retained only so a late-arriving repair
	// can still fold their contribution out; delivered marks which
	// entries fall in the latter group (spec §4.5 step 1.d: a repair
	// must be able to cancel any source it references, however late it
	// arrives relative to delivery).
	sources   *orderedMap[Source]
	delivered idSet
	missing   idSet
	repairs   *orderedMap[*Repair]

	lastDeliveredID uint32
	hasDelivered    bool

	ack         *pendingAck
	lastAckTime time.Time

	// Counters below are mutated only from the I/O thread but read from
	// Stats()/the Prometheus collector, possibly off that thread;
	// atomic access mirrors the teacher's Snmp counters (snmp.go).
	nbReceivedSources     uint64
	nbReceivedRepairs     uint64
	nbDecoded             uint64
	nbUselessRepairs      uint64
	nbFailedFullDecodings uint64
	nbSentAcks            uint64
}

func newDecoderCore(cfg Configuration, field galois.Field, emit emitFunc, deliver deliverFunc) *decoderCore {
	return &decoderCore{
		field:       field,
		cfg:         cfg,
		pk:          newPacketizer(emit),
		deliver:     deliver,
		sources:     newOrderedMap[Source](),
		delivered:   newIDSet(),
		missing:     newIDSet(),
		repairs:     newOrderedMap[*Repair](),
		ack:         newPendingAck(),
		lastAckTime: time.Now(),
	}
}

// onSource absorbs a directly-received source (spec §4.5 step 1).
func (d *decoderCore) onSource(s Source) {
	atomic.AddUint64(&d.nbReceivedSources, 1)
	d.ack.countPacket()
	d.absorb(s)
	d.drainSingletons()
	d.deliverReady()
}

// onRepair absorbs a received repair (spec §4.5 step 2).
func (d *decoderCore) onRepair(r Repair) {
	atomic.AddUint64(&d.nbReceivedRepairs, 1)
	d.ack.countPacket()

	if d.cfg.InOrder && d.isOutdatedRepair(r) {
		return
	}

	rp := &r
	unusable := false
	for _, id := range append([]uint32(nil), rp.SourceIDs...) {
		if s, ok := d.sources.Get(id); ok {
			rp.addContribution(d.field, s)
			rp.removeSourceID(id)
		} else if d.delivered.Has(id) {
			// id was delivered, then pruned from sources once no retained
			// repair still needed it; a repair resurfacing it now can
			// never have its coefficient folded out, so the remaining
			// equation is unsolvable for any id it still references.
			unusable = true
		} else {
			d.missing.Add(id)
		}
	}
	if unusable {
		atomic.AddUint64(&d.nbUselessRepairs, 1)
		d.drainSingletons()
		d.deliverReady()
		return
	}

	switch len(rp.SourceIDs) {
	case 0:
		atomic.AddUint64(&d.nbUselessRepairs, 1)
	case 1:
		d.decodeSingleton(rp)
	default:
		d.repairs.Set(rp.ID, rp)
		d.fullDecode()
	}

	d.drainSingletons()
	d.deliverReady()
}

// isOutdatedRepair reports whether every id r still references is
// already past the delivered prefix (spec §4.5 step 2.a).
func (d *decoderCore) isOutdatedRepair(r Repair) bool {
	if !d.hasDelivered || len(r.SourceIDs) == 0 {
		return false
	}
	for _, id := range r.SourceIDs {
		if id > d.lastDeliveredID {
			return false
		}
	}
	return true
}

func (d *decoderCore) isKnownDelivered(id uint32) bool {
	return d.hasDelivered && id <= d.lastDeliveredID
}

// minRetentionWindow bounds retentionWindow for non-systematic or very
// low rate configurations, where a one- or two-source trailing window
// would prune a delivered source before a reordered repair covering it
// has a realistic chance to arrive.
const minRetentionWindow = 4

// retentionWindow is how many ids behind the delivered prefix a
// delivered source is kept available for a late repair to fold out,
// before pruneOutdated reclaims it regardless of repair references. A
// repair never combines more than the encoder's configured Rate worth
// of trailing sources (adaptive rate control only ever shrinks that
// span), so this bounds how late a repair can arrive and still be
// usable without retaining delivered sources indefinitely.
func (d *decoderCore) retentionWindow() uint32 {
	w := uint32(d.cfg.Rate)
	if w < minRetentionWindow {
		w = minRetentionWindow
	}
	return w
}

// absorb inserts s into the known-sources set (unless an in-order drop
// applies), clears it from missing, and folds its contribution out of
// every retained repair that still references it (spec §4.5 step 1.b-d).
func (d *decoderCore) absorb(s Source) {
	if d.delivered.Has(s.ID) {
		return
	}
	if !d.sources.Has(s.ID) {
		d.sources.Set(s.ID, s)
	}
	d.missing.Remove(s.ID)
	d.subtractFromRepairs(s)
}

// subtractFromRepairs folds s's contribution out of every retained
// repair referencing it, resolving any repair that becomes useless or
// a singleton as a result.
func (d *decoderCore) subtractFromRepairs(s Source) {
	for _, rid := range append([]uint32(nil), d.repairs.Keys()...) {
		r, ok := d.repairs.Get(rid)
		if !ok || !r.hasSourceID(s.ID) {
			continue
		}
		r.addContribution(d.field, s)
		r.removeSourceID(s.ID)

		switch len(r.SourceIDs) {
		case 0:
			atomic.AddUint64(&d.nbUselessRepairs, 1)
			d.repairs.Delete(rid)
		case 1:
			d.repairs.Delete(rid)
			d.decodeSingleton(r)
		}
	}
}

// decodeSingleton resolves a repair known to reference exactly one
// remaining source id (spec §4.5 step 2.e), folding the result back
// into the decoder state. A decode failure here would mean a
// zero coefficient, which Coefficient never produces, so it is
// treated as unreachable rather than surfaced as a counted failure.
func (d *decoderCore) decodeSingleton(r *Repair) {
	src, err := r.decodeSource(d.field)
	if err != nil {
		return
	}
	atomic.AddUint64(&d.nbDecoded, 1)
	d.absorb(src)
}

// drainSingletons repeatedly resolves any retained repair left with
// exactly one remaining id, until none remain (spec §4.5 step 3). In
// steady state subtractFromRepairs already resolves singletons as they
// arise; this is the fixpoint sweep the spec describes explicitly, and
// catches anything full_decode's bulk update left behind.
func (d *decoderCore) drainSingletons() {
	for {
		rid, r, ok := d.findSingleton()
		if !ok {
			return
		}
		d.repairs.Delete(rid)
		d.decodeSingleton(r)
	}
}

func (d *decoderCore) findSingleton() (uint32, *Repair, bool) {
	var (
		foundID uint32
		foundR  *Repair
		found   bool
	)
	d.repairs.ForEach(func(id uint32, r *Repair) {
		if !found && len(r.SourceIDs) == 1 {
			foundID, foundR, found = id, r, true
		}
	})
	return foundID, foundR, found
}

// deliverReady releases whatever sources the configured delivery mode
// allows right now (spec §4.5 step 5), then drops repairs and missing
// ids made outdated by the new delivered prefix.
func (d *decoderCore) deliverReady() {
	delivered := false
	if d.cfg.InOrder {
		for {
			next := uint32(0)
			if d.hasDelivered {
				next = d.lastDeliveredID + 1
			}
			s, ok := d.sources.Get(next)
			if !ok || d.delivered.Has(next) {
				break
			}
			d.deliverOne(s)
			delivered = true
		}
	} else {
		for _, id := range append([]uint32(nil), d.sources.Keys()...) {
			if d.delivered.Has(id) {
				continue
			}
			s, _ := d.sources.Get(id)
			d.deliverOne(s)
			delivered = true
		}
	}
	if delivered {
		d.pruneOutdated()
	}
}

// deliverOne hands s to the application and retains it (marked
// delivered) rather than discarding it immediately, so a repair that
// still references it — having been generated or delayed before s was
// delivered — can still have its contribution folded out (spec §4.5
// step 1.d; pruneOutdated drops the retained copy once no repair needs
// it any longer).
func (d *decoderCore) deliverOne(s Source) {
	d.deliver(s.Payload())
	d.ack.addDelivered(s.ID)
	d.delivered.Add(s.ID)
	if !d.hasDelivered || s.ID > d.lastDeliveredID {
		d.lastDeliveredID = s.ID
		d.hasDelivered = true
	}
	// Mirrors the original's handle_source, which checks maybe_ack
	// after every delivered source rather than leaving it solely to
	// the caller's polling loop.
	d.maybeAck(time.Now())
}

// pruneOutdated drops every repair whose highest referenced id is at
// or behind the delivered prefix, then drops any now-unreferenced
// missing ids, and any delivered-but-retained source that no retained
// repair references and that lies at least retentionWindow() ids behind
// the delivered prefix (spec §4.5 step 5, §3 invariants). Unreferenced
// delivered sources closer to the prefix than that stay in sources.
func (d *decoderCore) pruneOutdated() {
	for _, rid := range append([]uint32(nil), d.repairs.Keys()...) {
		r, _ := d.repairs.Get(rid)
		if maxID, ok := r.maxSourceID(); ok && maxID <= d.lastDeliveredID {
			d.repairs.Delete(rid)
		}
	}

	referenced := make(map[uint32]bool)
	d.repairs.ForEach(func(_ uint32, r *Repair) {
		for _, id := range r.SourceIDs {
			referenced[id] = true
		}
	})
	for _, id := range append([]uint32(nil), d.missing.Keys()...) {
		if !referenced[id] {
			d.missing.Remove(id)
		}
	}
	retain := d.retentionWindow()
	for _, id := range append([]uint32(nil), d.sources.Keys()...) {
		if !d.delivered.Has(id) || referenced[id] {
			continue
		}
		if d.lastDeliveredID-id < retain {
			continue
		}
		d.sources.Delete(id)
	}
}

// maybeAck emits an ack if the packet-count threshold or the ack
// frequency timeout has been reached (spec §4.5 "Ack generation").
func (d *decoderCore) maybeAck(now time.Time) {
	if d.cfg.AckNbPackets > 0 && d.ack.nbPackets >= d.cfg.AckNbPackets {
		d.generateAck(now)
		return
	}
	if d.cfg.AckFrequency > 0 && now.Sub(d.lastAckTime) >= d.cfg.AckFrequency {
		d.generateAck(now)
	}
}

// generateAck emits an ack immediately, covering every id delivered or
// decoded since the previous ack plus every id still held in sources
// (both those awaiting delivery and delivered ones still retained),
// then resets the pending-ack structure.
func (d *decoderCore) generateAck(now time.Time) {
	a := d.ack.toAck()

	seen := make(map[uint32]bool, len(a.SourceIDs))
	merged := make([]uint32, 0, len(a.SourceIDs)+d.sources.Len())
	for _, id := range a.SourceIDs {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	for _, id := range d.sources.Keys() {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	a.SourceIDs = merged

	d.pk.writeAck(a)
	atomic.AddUint64(&d.nbSentAcks, 1)
	d.ack.reset()
	d.lastAckTime = now
}

func decodeUserSize(buf []byte) uint16 {
	return binary.LittleEndian.Uint16(buf[:2])
}
