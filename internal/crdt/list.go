package crdt

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// listItem is one LiveList slot. Order is defined entirely by Position's
// lexicographic value, never by slice index, so concurrent inserts at the
// same anchor interleave instead of colliding.
type listItem struct {
	id       string
	position string
	value    any
	clock    Clock
	deleted  bool
}

// LiveList is an ordered sequence addressed by fractional-index position
// strings. Deleted items remain as tombstones, like LiveMap.
type LiveList struct {
	base
	mu    sync.RWMutex
	items []*listItem // kept sorted by position, including tombstones
	subs  subscriberSet
}

func NewLiveList() *LiveList {
	return &LiveList{}
}

func (l *LiveList) Type() NodeType              { return TypeList }
func (l *LiveList) parentNode() Node            { return l.parent }
func (l *LiveList) subscribers() *subscriberSet { return &l.subs }

func (l *LiveList) attach(doc *StorageDocument, parent Node, key string) {
	l.doc = doc
	l.parent = parent
	l.key = key
	l.path = childPath(parent.Path(), key)
	l.mu.RLock()
	children := make(map[string]any)
	for _, it := range l.items {
		if !it.deleted {
			children[it.id] = it.value
		}
	}
	l.mu.RUnlock()
	for id, v := range children {
		attachChild(doc, l, id, v)
	}
}

// Len returns the number of live (non-tombstone) items.
func (l *LiveList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, it := range l.items {
		if !it.deleted {
			n++
		}
	}
	return n
}

// Values returns the live items' values in position order.
func (l *LiveList) Values() []any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]any, 0, len(l.items))
	for _, it := range l.items {
		if !it.deleted {
			out = append(out, it.value)
		}
	}
	return out
}

// liveNeighbors returns the positions of the live items immediately
// surrounding visible index idx (0..Len()), used to compute a fresh
// fractional position for an insert or move.
func (l *LiveList) liveNeighbors(idx int) (before, after string) {
	visible := 0
	for i, it := range l.items {
		if it.deleted {
			continue
		}
		if visible == idx {
			after = it.position
			if i > 0 {
				// walk back to the nearest live predecessor
				for j := i - 1; j >= 0; j-- {
					if !l.items[j].deleted {
						before = l.items[j].position
						break
					}
				}
			}
			return before, after
		}
		before = it.position
		visible++
	}
	return before, ""
}

func (l *LiveList) insertSorted(it *listItem) {
	i := sort.Search(len(l.items), func(i int) bool { return l.items[i].position > it.position })
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = it
}

// InsertAt inserts value as the item at visible index idx, generating a
// fresh fractional position between its new neighbors.
func (l *LiveList) InsertAt(idx int, value any) Op {
	clock := l.doc.tickForLocalOp()
	l.mu.Lock()
	before, after := l.liveNeighbors(idx)
	pos := generateKeyBetween(before, after)
	id := uuid.NewString()
	it := &listItem{id: id, position: pos, value: value, clock: clock}
	l.insertSorted(it)
	l.mu.Unlock()
	attachChild(l.doc, l, id, value)
	l.doc.captureInverse(Op{Kind: OpListDelete, Path: l.Path(), ID: id})
	op := Op{Kind: OpListInsert, Path: l.Path(), ID: id, Position: pos, Value: serializeValue(value), Clock: clock}
	l.doc.recordLocalOp(op)
	notifyMutation(l, l.Path())
	return op
}

// Delete tombstones the item with id.
func (l *LiveList) Delete(id string) Op {
	clock := l.doc.tickForLocalOp()
	l.mu.Lock()
	var inverse Op
	for _, it := range l.items {
		if it.id == id && !it.deleted {
			inverse = Op{Kind: OpListInsert, Path: l.Path(), ID: id, Position: it.position, Value: serializeValue(it.value), Clock: it.clock}
			it.deleted = true
			it.clock = clock
			break
		}
	}
	l.mu.Unlock()
	if inverse.Kind != "" {
		l.doc.captureInverse(inverse)
	}
	op := Op{Kind: OpListDelete, Path: l.Path(), ID: id, Clock: clock}
	l.doc.recordLocalOp(op)
	notifyMutation(l, l.Path())
	return op
}

// Move relocates the item with id to visible index newIdx.
func (l *LiveList) Move(id string, newIdx int) Op {
	clock := l.doc.tickForLocalOp()
	l.mu.Lock()
	var moving *listItem
	var oldIndex int
	for i, it := range l.items {
		if it.id == id && !it.deleted {
			moving = it
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			oldIndex = i
			break
		}
	}
	if moving == nil {
		l.mu.Unlock()
		return Op{}
	}
	inverse := Op{Kind: OpListMove, Path: l.Path(), ID: id, Position: moving.position, Clock: moving.clock}
	before, after := l.liveNeighbors(newIdx)
	pos := generateKeyBetween(before, after)
	moving.position = pos
	moving.clock = clock
	l.insertSorted(moving)
	l.mu.Unlock()
	_ = oldIndex
	l.doc.captureInverse(inverse)
	op := Op{Kind: OpListMove, Path: l.Path(), ID: id, Position: pos, Clock: clock}
	l.doc.recordLocalOp(op)
	notifyMutation(l, l.Path())
	return op
}

// getByID returns a live item's value by id, used when resolving a storage
// path that descends through a list.
func (l *LiveList) getByID(id string) (any, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, it := range l.items {
		if it.id == id && !it.deleted {
			return it.value, true
		}
	}
	return nil, false
}

// restoreInsert re-inserts a tombstoned or previously-deleted item at an
// exact id/position, used by undo/redo to invert a Delete.
func (l *LiveList) restoreInsert(id, position string, value any) Op {
	clock := l.doc.tickForLocalOp()
	l.mu.Lock()
	for _, it := range l.items {
		if it.id == id {
			it.deleted = false
			it.value = value
			it.position = position
			it.clock = clock
			l.mu.Unlock()
			attachChild(l.doc, l, id, value)
			l.doc.captureInverse(Op{Kind: OpListDelete, Path: l.Path(), ID: id})
			op := Op{Kind: OpListInsert, Path: l.Path(), ID: id, Position: position, Value: serializeValue(value), Clock: clock}
			l.doc.recordLocalOp(op)
			notifyMutation(l, l.Path())
			return op
		}
	}
	it := &listItem{id: id, position: position, value: value, clock: clock}
	l.insertSorted(it)
	l.mu.Unlock()
	attachChild(l.doc, l, id, value)
	l.doc.captureInverse(Op{Kind: OpListDelete, Path: l.Path(), ID: id})
	op := Op{Kind: OpListInsert, Path: l.Path(), ID: id, Position: position, Value: serializeValue(value), Clock: clock}
	l.doc.recordLocalOp(op)
	notifyMutation(l, l.Path())
	return op
}

// restoreMove relocates id to an exact position, used by undo/redo to
// invert a Move.
func (l *LiveList) restoreMove(id, position string) Op {
	clock := l.doc.tickForLocalOp()
	l.mu.Lock()
	var moving *listItem
	var oldPosition string
	for i, it := range l.items {
		if it.id == id {
			moving = it
			oldPosition = it.position
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			break
		}
	}
	if moving == nil {
		l.mu.Unlock()
		return Op{}
	}
	moving.position = position
	moving.clock = clock
	l.insertSorted(moving)
	l.mu.Unlock()
	l.doc.captureInverse(Op{Kind: OpListMove, Path: l.Path(), ID: id, Position: oldPosition})
	op := Op{Kind: OpListMove, Path: l.Path(), ID: id, Position: position, Clock: clock}
	l.doc.recordLocalOp(op)
	notifyMutation(l, l.Path())
	return op
}

// replaceFrom swaps in another list's contents without copying its mutex.
func (l *LiveList) replaceFrom(other *LiveList) {
	other.mu.RLock()
	items := other.items
	other.mu.RUnlock()
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
}

func (l *LiveList) findByID(id string) *listItem {
	for _, it := range l.items {
		if it.id == id {
			return it
		}
	}
	return nil
}

func (l *LiveList) applyRemote(op Op) bool {
	switch op.Kind {
	case OpListInsert:
		l.mu.Lock()
		if l.findByID(op.ID) != nil {
			l.mu.Unlock()
			return false
		}
		value := deserializeValue(l.doc, op.Value)
		it := &listItem{id: op.ID, position: op.Position, value: value, clock: op.Clock}
		l.insertSorted(it)
		l.mu.Unlock()
		attachChild(l.doc, l, op.ID, value)
		notifyMutation(l, l.Path())
		return true
	case OpListDelete:
		l.mu.Lock()
		it := l.findByID(op.ID)
		if it == nil || it.deleted || op.Clock <= it.clock {
			l.mu.Unlock()
			return false
		}
		it.deleted = true
		it.clock = op.Clock
		l.mu.Unlock()
		notifyMutation(l, l.Path())
		return true
	case OpListMove:
		l.mu.Lock()
		it := l.findByID(op.ID)
		if it == nil || op.Clock <= it.clock {
			l.mu.Unlock()
			return false
		}
		for i, x := range l.items {
			if x.id == op.ID {
				l.items = append(l.items[:i:i], l.items[i+1:]...)
				break
			}
		}
		it.position = op.Position
		it.clock = op.Clock
		l.insertSorted(it)
		l.mu.Unlock()
		notifyMutation(l, l.Path())
		return true
	default:
		return false
	}
}

func (l *LiveList) serialize() any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	items := make([]serializedListItem, len(l.items))
	for i, it := range l.items {
		items[i] = serializedListItem{
			ID:       it.id,
			Position: it.position,
			Value:    serializeValue(it.value),
			Clock:    it.clock,
			Deleted:  it.deleted,
		}
	}
	return serializedList{Type: TypeList, Items: items}
}
