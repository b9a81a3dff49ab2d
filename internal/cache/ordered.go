package cache

import "container/list"

// ordered is a keyed store that remembers access order: the list front is the
// most recently used entry, the back the least.
type ordered[V any] struct {
	ll    *list.List
	index map[string]*list.Element
}

type orderedEntry[V any] struct {
	key   string
	value V
}

func newOrdered[V any]() *ordered[V] {
	return &ordered[V]{ll: list.New(), index: make(map[string]*list.Element)}
}

func (o *ordered[V]) len() int { return o.ll.Len() }

// get looks up key without changing its position.
func (o *ordered[V]) get(key string) (V, bool) {
	if el, ok := o.index[key]; ok {
		return el.Value.(*orderedEntry[V]).value, true
	}
	var zero V
	return zero, false
}

func (o *ordered[V]) touch(key string) {
	if el, ok := o.index[key]; ok {
		o.ll.MoveToFront(el)
	}
}

// put inserts or overwrites key and makes it the most recently used.
func (o *ordered[V]) put(key string, value V) {
	if el, ok := o.index[key]; ok {
		el.Value.(*orderedEntry[V]).value = value
		o.ll.MoveToFront(el)
		return
	}
	o.index[key] = o.ll.PushFront(&orderedEntry[V]{key: key, value: value})
}

func (o *ordered[V]) remove(key string) {
	if el, ok := o.index[key]; ok {
		o.ll.Remove(el)
		delete(o.index, key)
	}
}

// trim evicts least recently used entries, one at a time, until at most limit
// remain. It returns how many were evicted.
func (o *ordered[V]) trim(limit int) int {
	n := 0
	for o.ll.Len() > limit {
		el := o.ll.Back()
		if el == nil {
			break
		}
		o.ll.Remove(el)
		delete(o.index, el.Value.(*orderedEntry[V]).key)
		n++
	}
	return n
}

// each walks entries from least to most recently used until fn returns false.
// fn may remove the entry it is given.
func (o *ordered[V]) each(fn func(key string, value V) bool) {
	for el := o.ll.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*orderedEntry[V])
		if !fn(e.key, e.value) {
			return
		}
		el = prev
	}
}
