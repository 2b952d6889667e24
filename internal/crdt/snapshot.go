package crdt

import "encoding/json"

// serializedField is LiveObject's wire form for one field.
type serializedField struct {
	Value any   `json:"value"`
	Clock Clock `json:"clock"`
}

type serializedObject struct {
	Type   NodeType                   `json:"type"`
	Fields map[string]serializedField `json:"fields"`
}

type serializedMapEntry struct {
	Value   any   `json:"value"`
	Clock   Clock `json:"clock"`
	Deleted bool  `json:"deleted"`
}

type serializedMap struct {
	Type    NodeType                      `json:"type"`
	Entries map[string]serializedMapEntry `json:"entries"`
}

type serializedListItem struct {
	ID       string `json:"id"`
	Position string `json:"position"`
	Value    any    `json:"value"`
	Clock    Clock  `json:"clock"`
	Deleted  bool   `json:"deleted"`
}

type serializedList struct {
	Type  NodeType             `json:"type"`
	Items []serializedListItem `json:"items"`
}

// serializeValue returns value's wire form: a tagged struct for CRDT nodes,
// or the primitive itself.
func serializeValue(value any) any {
	if node, ok := value.(Node); ok {
		return node.serialize()
	}
	return value
}

// deserializeValue reconstructs a value from its wire form, attaching fresh
// CRDT nodes where the tag indicates one. It accepts both the Go struct
// shapes produced locally by serializeValue and the map[string]interface{}
// shapes produced by decoding JSON off the wire.
func deserializeValue(doc *StorageDocument, raw any) any {
	var discard Clock
	return deserializeValueTracked(doc, raw, &discard)
}

func deserializeValueTracked(doc *StorageDocument, raw any, max *Clock) any {
	generic := toGenericForm(raw)
	m, ok := generic.(map[string]interface{})
	if !ok {
		return generic
	}
	t, _ := m["type"].(string)
	switch NodeType(t) {
	case TypeObject:
		return rebuildObject(doc, m, max)
	case TypeMap:
		return rebuildMap(doc, m, max)
	case TypeList:
		return rebuildList(doc, m, max)
	default:
		return generic
	}
}

func observeClock(max *Clock, c Clock) {
	if c > *max {
		*max = c
	}
}

func toGenericForm(raw any) any {
	switch raw.(type) {
	case serializedObject, serializedMap, serializedList:
		data, err := json.Marshal(raw)
		if err != nil {
			return raw
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return raw
		}
		return generic
	default:
		return raw
	}
}

func clockOf(m map[string]interface{}) Clock {
	if f, ok := m["clock"].(float64); ok {
		return Clock(f)
	}
	return 0
}

func rebuildObject(doc *StorageDocument, m map[string]interface{}, max *Clock) *LiveObject {
	obj := NewLiveObject()
	fieldsRaw, _ := m["fields"].(map[string]interface{})
	for k, fv := range fieldsRaw {
		fm, ok := fv.(map[string]interface{})
		if !ok {
			continue
		}
		c := clockOf(fm)
		observeClock(max, c)
		obj.fields[k] = &objectField{value: deserializeValueTracked(doc, fm["value"], max), clock: c}
	}
	return obj
}

func rebuildMap(doc *StorageDocument, m map[string]interface{}, max *Clock) *LiveMap {
	lm := NewLiveMap()
	entriesRaw, _ := m["entries"].(map[string]interface{})
	for k, ev := range entriesRaw {
		em, ok := ev.(map[string]interface{})
		if !ok {
			continue
		}
		deleted, _ := em["deleted"].(bool)
		c := clockOf(em)
		observeClock(max, c)
		lm.entries[k] = &mapEntry{value: deserializeValueTracked(doc, em["value"], max), clock: c, deleted: deleted}
		if !deleted {
			lm.live++
		}
	}
	return lm
}

func rebuildList(doc *StorageDocument, m map[string]interface{}, max *Clock) *LiveList {
	ll := NewLiveList()
	itemsRaw, _ := m["items"].([]interface{})
	ll.items = make([]*listItem, 0, len(itemsRaw))
	for _, iv := range itemsRaw {
		im, ok := iv.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := im["id"].(string)
		position, _ := im["position"].(string)
		deleted, _ := im["deleted"].(bool)
		c := clockOf(im)
		observeClock(max, c)
		ll.items = append(ll.items, &listItem{
			id:       id,
			position: position,
			value:    deserializeValueTracked(doc, im["value"], max),
			clock:    c,
			deleted:  deleted,
		})
	}
	return ll
}
