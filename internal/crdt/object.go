package crdt

import "sync"

// objectField is the stored value for one LiveObject field: the LWW clock
// it was last written at, alongside the value itself.
type objectField struct {
	value any
	clock Clock
}

// LiveObject is a mapping from string field name to a last-writer-wins
// value, which may itself be a nested LiveObject/LiveMap/LiveList.
type LiveObject struct {
	base
	mu     sync.RWMutex
	fields map[string]*objectField
	subs   subscriberSet
}

// NewLiveObject returns an empty, unattached LiveObject. Assign it as a
// value elsewhere in the tree to attach it.
func NewLiveObject() *LiveObject {
	return &LiveObject{fields: make(map[string]*objectField)}
}

func (o *LiveObject) Type() NodeType          { return TypeObject }
func (o *LiveObject) parentNode() Node        { return o.parent }
func (o *LiveObject) subscribers() *subscriberSet { return &o.subs }

func (o *LiveObject) attach(doc *StorageDocument, parent Node, key string) {
	o.doc = doc
	o.parent = parent
	o.key = key
	if parent == nil {
		o.path = []string{}
	} else {
		o.path = childPath(parent.Path(), key)
	}
	o.mu.RLock()
	children := make(map[string]any, len(o.fields))
	for k, f := range o.fields {
		children[k] = f.value
	}
	o.mu.RUnlock()
	for k, v := range children {
		attachChild(doc, o, k, v)
	}
}

// Get returns the current value of key and whether it is set.
func (o *LiveObject) Get(key string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	f, ok := o.fields[key]
	if !ok {
		return nil, false
	}
	return f.value, true
}

// Keys returns the object's field names in no particular order.
func (o *LiveObject) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	keys := make([]string, 0, len(o.fields))
	for k := range o.fields {
		keys = append(keys, k)
	}
	return keys
}

// Set assigns key=value locally: ticks the document clock, captures the
// field's prior state for undo, attaches value if it is itself a node,
// applies the write, emits the wire op, and notifies subscribers.
func (o *LiveObject) Set(key string, value any) Op {
	clock := o.doc.tickForLocalOp()
	inverse := o.inverseForSet(key)
	attachChild(o.doc, o, key, value)
	o.mu.Lock()
	o.fields[key] = &objectField{value: value, clock: clock}
	o.mu.Unlock()
	o.doc.captureInverse(inverse)
	op := Op{Kind: OpSet, Path: o.Path(), Key: key, Value: serializeValue(value), Clock: clock}
	o.doc.recordLocalOp(op)
	notifyMutation(o, o.Path())
	return op
}

// Delete removes key locally, following the same clock/history/notify
// discipline as Set.
func (o *LiveObject) Delete(key string) Op {
	clock := o.doc.tickForLocalOp()
	inverse := o.inverseForSet(key)
	o.mu.Lock()
	delete(o.fields, key)
	o.mu.Unlock()
	o.doc.captureInverse(inverse)
	op := Op{Kind: OpDelete, Path: o.Path(), Key: key, Clock: clock}
	o.doc.recordLocalOp(op)
	notifyMutation(o, o.Path())
	return op
}

// inverseForSet builds the op that would restore key's current state,
// called before a Set/Delete mutates it.
func (o *LiveObject) inverseForSet(key string) Op {
	o.mu.RLock()
	f, ok := o.fields[key]
	o.mu.RUnlock()
	if !ok {
		return Op{Kind: OpDelete, Path: o.Path(), Key: key}
	}
	return Op{Kind: OpSet, Path: o.Path(), Key: key, Value: serializeValue(f.value), Clock: f.clock}
}

// applyRemote applies an externally-generated op to this object, following
// invariant 1: an op whose clock does not strictly exceed the stored clock
// is a no-op.
func (o *LiveObject) applyRemote(op Op) bool {
	switch op.Kind {
	case OpSet:
		o.mu.Lock()
		existing, ok := o.fields[op.Key]
		if ok && op.Clock <= existing.clock {
			o.mu.Unlock()
			return false
		}
		value := deserializeValue(o.doc, op.Value)
		o.fields[op.Key] = &objectField{value: value, clock: op.Clock}
		o.mu.Unlock()
		attachChild(o.doc, o, op.Key, value)
		notifyMutation(o, o.Path())
		return true
	case OpDelete:
		o.mu.Lock()
		existing, ok := o.fields[op.Key]
		if !ok {
			o.mu.Unlock()
			return false
		}
		if op.Clock <= existing.clock {
			o.mu.Unlock()
			return false
		}
		delete(o.fields, op.Key)
		o.mu.Unlock()
		notifyMutation(o, o.Path())
		return true
	default:
		return false
	}
}

// replaceFrom swaps in another object's fields without copying its mutex,
// used to rehydrate a document's root in place from a fresh snapshot.
func (o *LiveObject) replaceFrom(other *LiveObject) {
	other.mu.RLock()
	fields := other.fields
	other.mu.RUnlock()
	o.mu.Lock()
	o.fields = fields
	o.mu.Unlock()
}

func (o *LiveObject) serialize() any {
	o.mu.RLock()
	defer o.mu.RUnlock()
	fields := make(map[string]serializedField, len(o.fields))
	for k, f := range o.fields {
		fields[k] = serializedField{Value: serializeValue(f.value), Clock: f.clock}
	}
	return serializedObject{Type: TypeObject, Fields: fields}
}
