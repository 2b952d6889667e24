package crdt

import "sync"

// defaultMaxHistoryEntries bounds the undo stack depth (spec default: 100).
const defaultMaxHistoryEntries = 100

// StorageDocument owns one room's CRDT tree: a root LiveObject, the Lamport
// clock that orders its mutations, and the history manager backing
// undo/redo. Every connection's storage document in the room server is one
// StorageDocument.
type StorageDocument struct {
	mu      sync.Mutex
	root    *LiveObject
	clock   *LamportClock
	history *HistoryManager
	capture []Op
}

// NewStorageDocument returns a document with an empty root object.
func NewStorageDocument() *StorageDocument {
	d := &StorageDocument{clock: NewLamportClock()}
	d.history = NewHistoryManager(d, defaultMaxHistoryEntries)
	d.root = NewLiveObject()
	d.root.attach(d, nil, "")
	return d
}

// NewStorageDocumentFromSnapshot rebuilds a document from a previously
// serialized root (see Serialize), restoring the clock past every clock
// value the snapshot contains.
func NewStorageDocumentFromSnapshot(raw any) *StorageDocument {
	d := &StorageDocument{clock: NewLamportClock()}
	d.history = NewHistoryManager(d, defaultMaxHistoryEntries)
	root, max := rebuildRoot(d, raw)
	d.root = root
	d.root.attach(d, nil, "")
	d.clock.Reset(max)
	return d
}

func rebuildRoot(doc *StorageDocument, raw any) (*LiveObject, Clock) {
	generic := toGenericForm(raw)
	m, _ := generic.(map[string]interface{})
	var max Clock
	return rebuildObject(doc, m, &max), max
}

// Root returns the document's root LiveObject.
func (d *StorageDocument) Root() *LiveObject { return d.root }

// Clock returns the document's current Lamport clock value.
func (d *StorageDocument) Clock() Clock { return d.clock.Current() }

// History returns the document's undo/redo manager.
func (d *StorageDocument) History() *HistoryManager { return d.history }

// Serialize returns the document's full tagged tree, suitable for
// persistence or for sending as a storage:init payload.
func (d *StorageDocument) Serialize() any {
	return d.root.serialize()
}

// ApplySnapshot rehydrates the document in place from raw so any references
// already held to its root remain valid — used on reconnect when a fresh
// snapshot supersedes local state.
func (d *StorageDocument) ApplySnapshot(raw any) {
	root, max := rebuildRoot(d, raw)
	d.root.replaceFrom(root)
	d.root.attach(d, nil, "")
	d.clock.Reset(max)
}

// Subscribe registers fn against the document's root.
func (d *StorageDocument) Subscribe(deep bool, fn SubscriberFunc) func() {
	return Subscribe(d.root, deep, fn)
}

func (d *StorageDocument) tickForLocalOp() Clock {
	return d.clock.Tick()
}

func (d *StorageDocument) captureInverse(op Op) {
	d.history.capture(op)
}

func (d *StorageDocument) recordLocalOp(op Op) {
	d.mu.Lock()
	d.capture = append(d.capture, op)
	d.mu.Unlock()
}

// Mutate runs fn against the document root and returns every op fn's calls
// generated, with a fresh Lamport clock value each and full undo-stack
// participation — the path a connection's own edits take.
func (d *StorageDocument) Mutate(fn func(root *LiveObject)) []Op {
	d.mu.Lock()
	d.capture = nil
	d.mu.Unlock()

	d.history.StartBatch()
	fn(d.root)
	d.history.EndBatch()

	d.mu.Lock()
	ops := d.capture
	d.capture = nil
	d.mu.Unlock()
	return ops
}

// MutateAsServer behaves like Mutate but pauses undo/redo capture for its
// duration: server-originated ops never populate the undo stack.
func (d *StorageDocument) MutateAsServer(fn func(root *LiveObject)) []Op {
	d.history.Pause()
	defer d.history.Resume()
	return d.Mutate(fn)
}

// ApplyRemoteOps applies externally-sourced ops (e.g. a client's
// storage:ops frame) idempotently: the document clock is merged with each
// op's clock, and only ops that still apply after the per-field clock guard
// are returned, for broadcast/notify purposes.
func (d *StorageDocument) ApplyRemoteOps(ops []Op) []Op {
	applied := make([]Op, 0, len(ops))
	for _, op := range ops {
		d.clock.Merge(op.Clock)
		node, ok := d.resolvePath(op.Path)
		if !ok {
			continue
		}
		if applyRemoteOnNode(node, op) {
			applied = append(applied, op)
		}
	}
	return applied
}

func applyRemoteOnNode(node Node, op Op) bool {
	switch n := node.(type) {
	case *LiveObject:
		return n.applyRemote(op)
	case *LiveMap:
		return n.applyRemote(op)
	case *LiveList:
		return n.applyRemote(op)
	default:
		return false
	}
}

// applyInverseOp re-applies a captured inverse op as a fresh local
// mutation, used by HistoryManager.Undo/Redo. Unlike ApplyRemoteOps it
// ticks a new clock value rather than trusting the op's own.
func (d *StorageDocument) applyInverseOp(op Op) {
	node, ok := d.resolvePath(op.Path)
	if !ok {
		return
	}
	switch n := node.(type) {
	case *LiveObject:
		switch op.Kind {
		case OpSet:
			n.Set(op.Key, deserializeValue(d, op.Value))
		case OpDelete:
			n.Delete(op.Key)
		}
	case *LiveMap:
		switch op.Kind {
		case OpSet:
			n.Set(op.Key, deserializeValue(d, op.Value))
		case OpDelete:
			n.Delete(op.Key)
		}
	case *LiveList:
		switch op.Kind {
		case OpListInsert:
			n.restoreInsert(op.ID, op.Position, deserializeValue(d, op.Value))
		case OpListDelete:
			n.Delete(op.ID)
		case OpListMove:
			n.restoreMove(op.ID, op.Position)
		}
	}
}

// resolvePath walks the tree from root through each path segment, treating
// a segment as a field/entry key for LiveObject/LiveMap and as an item id
// for LiveList. An op's Path addresses the *parent* of the field/item it
// mutates; Key/ID in the op itself addresses that field/item.
func (d *StorageDocument) resolvePath(path []string) (Node, bool) {
	var current Node = d.root
	for _, seg := range path {
		next, ok := childOf(current, seg)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func childOf(current Node, seg string) (Node, bool) {
	var value any
	var ok bool
	switch n := current.(type) {
	case *LiveObject:
		value, ok = n.Get(seg)
	case *LiveMap:
		value, ok = n.Get(seg)
	case *LiveList:
		value, ok = n.getByID(seg)
	default:
		return nil, false
	}
	if !ok {
		return nil, false
	}
	child, ok := value.(Node)
	return child, ok
}
