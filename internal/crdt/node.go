package crdt

// NodeType tags a node's serialized representation so Deserialize knows
// which concrete type to rebuild.
type NodeType string

const (
	TypeObject NodeType = "object"
	TypeMap    NodeType = "map"
	TypeList   NodeType = "list"
)

// Node is implemented by LiveObject, LiveMap, and LiveList. A node knows its
// own path from the document root (invariant 5) and can be attached under a
// new parent when written into the tree as a value.
type Node interface {
	Type() NodeType
	Path() []string
	attach(doc *StorageDocument, parent Node, key string)
	serialize() any
	parentNode() Node
	subscribers() *subscriberSet
}

// SubscriberFunc is invoked after a mutation is applied. path is the
// absolute path (from the document root) of the node that actually changed.
type SubscriberFunc func(path []string)

// Subscribe registers fn against node. A shallow subscription only fires for
// mutations to node's own fields/entries/items; a deep subscription also
// fires for mutations anywhere in node's subtree. The returned func
// unsubscribes.
func Subscribe(node Node, deep bool, fn SubscriberFunc) func() {
	return node.subscribers().add(deep, fn)
}

// notifyMutation fires subscribers after target was mutated at absolute
// path. target's own shallow and deep subscribers fire; every strict
// ancestor's deep subscribers fire.
func notifyMutation(target Node, path []string) {
	target.subscribers().fireShallow(path)
	target.subscribers().fireDeep(path)
	for p := target.parentNode(); p != nil; p = p.parentNode() {
		p.subscribers().fireDeep(path)
	}
}

// base carries the fields common to every CRDT node: its owning document,
// its parent link, and the path by which the root reaches it.
type base struct {
	doc    *StorageDocument
	parent Node
	key    string
	path   []string
}

func (b *base) Path() []string {
	out := make([]string, len(b.path))
	copy(out, b.path)
	return out
}

// attachChild walks a freshly-assigned value: if it is itself a CRDT node,
// it is parented under self at key and its own subtree paths are rebuilt.
func attachChild(doc *StorageDocument, self Node, key string, value any) {
	if child, ok := value.(Node); ok {
		child.attach(doc, self, key)
	}
}

// childPath builds the path a child node should report given its parent's
// path and its own key/id within that parent.
func childPath(parentPath []string, key string) []string {
	p := make([]string, len(parentPath)+1)
	copy(p, parentPath)
	p[len(parentPath)] = key
	return p
}

// subscriberSet holds shallow and deep subscriber callbacks for one node.
type subscriberSet struct {
	shallow []subscriberEntry
	deep    []subscriberEntry
	nextID  int
}

type subscriberEntry struct {
	id int
	fn SubscriberFunc
}

func (s *subscriberSet) add(deep bool, fn SubscriberFunc) func() {
	s.nextID++
	id := s.nextID
	entry := subscriberEntry{id: id, fn: fn}
	if deep {
		s.deep = append(s.deep, entry)
	} else {
		s.shallow = append(s.shallow, entry)
	}
	return func() {
		s.remove(deep, id)
	}
}

func (s *subscriberSet) remove(deep bool, id int) {
	list := &s.shallow
	if deep {
		list = &s.deep
	}
	for i, e := range *list {
		if e.id == id {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return
		}
	}
}

// fireShallow notifies this node's own shallow subscribers. The slice is
// copied first so a subscriber that mutates the tree cannot corrupt the
// iteration it is running inside.
func (s *subscriberSet) fireShallow(path []string) {
	entries := append([]subscriberEntry(nil), s.shallow...)
	for _, e := range entries {
		e.fn(path)
	}
}

func (s *subscriberSet) fireDeep(path []string) {
	entries := append([]subscriberEntry(nil), s.deep...)
	for _, e := range entries {
		e.fn(path)
	}
}
