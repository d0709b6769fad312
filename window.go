/*
@Description: encoder's bounded retention of recent sources
@Language: Go 1.23.4
*/

package fecgo

// window is the encoder's bounded retention of recently admitted
// sources (spec §3 "Window" / §4.4). Admission order at the encoder
// always equals id order (current_source_id only ever increases), so
// unlike the decoder's sources/repairs/missing sets the window never
// needs to absorb out-of-order inserts — but on_ack can still delete
// an arbitrary id out of the middle, which is why this wraps
// orderedMap rather than the teacher's plain RingBuffer[T] (that type
// only supports FIFO push/pop, not point deletion).
type window struct {
	sources *orderedMap[Source]
	limit   uint
}

func newWindow(limit uint) *window {
	return &window{sources: newOrderedMap[Source](), limit: limit}
}

// admit inserts src, evicting the oldest (smallest id) source if the
// window would exceed its configured limit (spec §4.4 step 1.c). It
// returns the evicted source id, if any.
func (w *window) admit(src Source) (evicted uint32, didEvict bool) {
	w.sources.Set(src.ID, src)
	if w.limit != unboundedWindow && uint(w.sources.Len()) > w.limit {
		id, _, _ := w.sources.PopMin()
		return id, true
	}
	return 0, false
}

func (w *window) remove(id uint32) { w.sources.Delete(id) }

func (w *window) size() int { return w.sources.Len() }

// lastN returns, in ascending id order, the last n admitted sources
// still resident in the window (spec §4.4 step 2: "the last
// min(rate, window) admitted sources").
func (w *window) lastN(n int) []Source {
	keys := w.sources.Keys()
	if n > len(keys) {
		n = len(keys)
	}
	start := len(keys) - n
	out := make([]Source, 0, n)
	for _, id := range keys[start:] {
		s, _ := w.sources.Get(id)
		out = append(out, s)
	}
	return out
}
