/*
@Description: ordered id -> value container used by both codec sides
@Language: Go 1.23.4
*/

package fecgo

import "sort"

// orderedMap is a generic map keyed by a monotonically-relevant 32-bit
// id that also exposes its keys in ascending order — the Go
// equivalent of the original's detail::source_list /
// detail::source_id_list (ordered std::list/std::set), generalized the
// way the teacher's RingBuffer[T] (ringbuffer.go) is generic over its
// element type. A plain Go map has no order; this type adds just
// enough bookkeeping (a sorted key slice) to recover it, since both
// EncoderCore's window and DecoderCore's sources/repairs/missing sets
// need ascending iteration (for FIFO eviction, for-in-order delivery,
// for deterministic full-decode matrix construction).
type orderedMap[V any] struct {
	index map[uint32]V
	keys  []uint32 // always sorted ascending
}

func newOrderedMap[V any]() *orderedMap[V] {
	return &orderedMap[V]{index: make(map[uint32]V)}
}

// Len returns the number of entries.
func (m *orderedMap[V]) Len() int { return len(m.keys) }

// Has reports whether id is present.
func (m *orderedMap[V]) Has(id uint32) bool {
	_, ok := m.index[id]
	return ok
}

// Get returns the value for id, if present.
func (m *orderedMap[V]) Get(id uint32) (V, bool) {
	v, ok := m.index[id]
	return v, ok
}

// Set inserts or overwrites the value at id, keeping keys sorted.
func (m *orderedMap[V]) Set(id uint32, v V) {
	if _, exists := m.index[id]; exists {
		m.index[id] = v
		return
	}
	pos := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= id })
	m.keys = append(m.keys, 0)
	copy(m.keys[pos+1:], m.keys[pos:])
	m.keys[pos] = id
	m.index[id] = v
}

// Delete removes id, if present.
func (m *orderedMap[V]) Delete(id uint32) {
	if _, ok := m.index[id]; !ok {
		return
	}
	delete(m.index, id)
	pos := sort.Search(len(m.keys), func(i int) bool { return m.keys[i] >= id })
	if pos < len(m.keys) && m.keys[pos] == id {
		m.keys = append(m.keys[:pos], m.keys[pos+1:]...)
	}
}

// Min returns the smallest key currently present.
func (m *orderedMap[V]) Min() (uint32, bool) {
	if len(m.keys) == 0 {
		return 0, false
	}
	return m.keys[0], true
}

// Keys returns the ascending-sorted keys. The caller must not mutate
// the returned slice.
func (m *orderedMap[V]) Keys() []uint32 { return m.keys }

// PopMin removes and returns the smallest entry.
func (m *orderedMap[V]) PopMin() (uint32, V, bool) {
	var zero V
	if len(m.keys) == 0 {
		return 0, zero, false
	}
	id := m.keys[0]
	v := m.index[id]
	m.Delete(id)
	return id, v, true
}

// ForEach visits entries in ascending key order. It is safe for fn to
// mutate the map's values (via Set on an existing key) but not to
// insert or delete while iterating.
func (m *orderedMap[V]) ForEach(fn func(id uint32, v V)) {
	for _, id := range m.keys {
		fn(id, m.index[id])
	}
}

// idSet is an ordered set of ids (an orderedMap with an empty value).
type idSet struct {
	m *orderedMap[struct{}]
}

func newIDSet() idSet {
	return idSet{m: newOrderedMap[struct{}]()}
}

func (s idSet) Add(id uint32)      { s.m.Set(id, struct{}{}) }
func (s idSet) Remove(id uint32)   { s.m.Delete(id) }
func (s idSet) Has(id uint32) bool { return s.m.Has(id) }
func (s idSet) Len() int           { return s.m.Len() }
func (s idSet) Keys() []uint32     { return s.m.Keys() }
