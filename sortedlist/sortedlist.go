// Package sortedlist implements a red-black tree of time-ordered events,
// grounded on original_source/src/LbSort.c. The original keeps tree
// nodes in a pointer-linked arena allocated in fixed-size blocks; per
// the redesign called for in this port, nodes live in a single slice and
// are addressed by index rather than pointer, so the tree carries no
// unsafe pointers and is trivially relocatable (e.g. across a save of a
// run's in-flight event queue).
package sortedlist

// nilIndex marks an absent child/parent, playing the role of the
// original's dedicated rbTreeNil sentinel node.
const nilIndex = -1

type color uint8

const (
	black color = iota
	red
)

type node struct {
	key    float64
	index  uint32
	data   any
	color  color
	parent int
	left   int
	right  int
	inUse  bool
}

// List is an index-addressed red-black tree, ordered by float64 key.
// Keys need not be unique; ties are broken by insertion order, matching
// LbSortInsert's behaviour of descending into the existing subtree on
// equal keys rather than rejecting the insert.
type List struct {
	nodes []node
	root  int
	free  []int
	count int
}

// New creates an empty sorted list. capacityHint pre-sizes the backing
// arena, mirroring LbSortNewList's numItems block-allocation argument.
func New(capacityHint int) *List {
	l := &List{
		nodes: make([]node, 0, capacityHint),
		root:  nilIndex,
	}
	return l
}

// Len returns the number of items currently in the list.
func (l *List) Len() int {
	return l.count
}

func (l *List) alloc(key float64, index uint32, data any) int {
	if n := len(l.free); n > 0 {
		idx := l.free[n-1]
		l.free = l.free[:n-1]
		l.nodes[idx] = node{key: key, index: index, data: data, color: red, parent: nilIndex, left: nilIndex, right: nilIndex, inUse: true}
		return idx
	}
	l.nodes = append(l.nodes, node{key: key, index: index, data: data, color: red, parent: nilIndex, left: nilIndex, right: nilIndex, inUse: true})
	return len(l.nodes) - 1
}

func (l *List) free_(idx int) {
	l.nodes[idx].inUse = false
	l.nodes[idx].data = nil
	l.free = append(l.free, idx)
}

// Insert adds a new item under key, carrying an integer index and an
// opaque data value, matching LbSortInsert(dataSortKeyPtr, indexData,
// dataPtr). Returns the handle of the new item.
func (l *List) Insert(key float64, index uint32, data any) int {
	z := l.alloc(key, index, data)

	var y = nilIndex
	x := l.root
	for x != nilIndex {
		y = x
		if key < l.nodes[x].key {
			x = l.nodes[x].left
		} else {
			x = l.nodes[x].right
		}
	}
	l.nodes[z].parent = y
	if y == nilIndex {
		l.root = z
	} else if key < l.nodes[y].key {
		l.nodes[y].left = z
	} else {
		l.nodes[y].right = z
	}

	l.count++
	l.insertFixup(z)
	return z
}

func (l *List) leftRotate(x int) {
	y := l.nodes[x].right
	l.nodes[x].right = l.nodes[y].left
	if l.nodes[y].left != nilIndex {
		l.nodes[l.nodes[y].left].parent = x
	}
	l.nodes[y].parent = l.nodes[x].parent
	if l.nodes[x].parent == nilIndex {
		l.root = y
	} else if x == l.nodes[l.nodes[x].parent].left {
		l.nodes[l.nodes[x].parent].left = y
	} else {
		l.nodes[l.nodes[x].parent].right = y
	}
	l.nodes[y].left = x
	l.nodes[x].parent = y
}

func (l *List) rightRotate(x int) {
	y := l.nodes[x].left
	l.nodes[x].left = l.nodes[y].right
	if l.nodes[y].right != nilIndex {
		l.nodes[l.nodes[y].right].parent = x
	}
	l.nodes[y].parent = l.nodes[x].parent
	if l.nodes[x].parent == nilIndex {
		l.root = y
	} else if x == l.nodes[l.nodes[x].parent].right {
		l.nodes[l.nodes[x].parent].right = y
	} else {
		l.nodes[l.nodes[x].parent].left = y
	}
	l.nodes[y].right = x
	l.nodes[x].parent = y
}

func (l *List) colorOf(idx int) color {
	if idx == nilIndex {
		return black
	}
	return l.nodes[idx].color
}

func (l *List) insertFixup(z int) {
	for z != l.root && l.colorOf(l.nodes[z].parent) == red {
		parent := l.nodes[z].parent
		grandparent := l.nodes[parent].parent
		if parent == l.nodes[grandparent].left {
			uncle := l.nodes[grandparent].right
			if l.colorOf(uncle) == red {
				l.nodes[parent].color = black
				l.nodes[uncle].color = black
				l.nodes[grandparent].color = red
				z = grandparent
			} else {
				if z == l.nodes[parent].right {
					z = parent
					l.leftRotate(z)
					parent = l.nodes[z].parent
					grandparent = l.nodes[parent].parent
				}
				l.nodes[parent].color = black
				l.nodes[grandparent].color = red
				l.rightRotate(grandparent)
			}
		} else {
			uncle := l.nodes[grandparent].left
			if l.colorOf(uncle) == red {
				l.nodes[parent].color = black
				l.nodes[uncle].color = black
				l.nodes[grandparent].color = red
				z = grandparent
			} else {
				if z == l.nodes[parent].left {
					z = parent
					l.rightRotate(z)
					parent = l.nodes[z].parent
					grandparent = l.nodes[parent].parent
				}
				l.nodes[parent].color = black
				l.nodes[grandparent].color = red
				l.leftRotate(grandparent)
			}
		}
	}
	l.nodes[l.root].color = black
}

// Delete removes the item at handle h, matching LbSortDelete.
func (l *List) Delete(h int) {
	z := h
	y := z
	yOriginalColor := l.colorOf(y)
	var x, xParent int

	if l.nodes[z].left == nilIndex {
		x = l.nodes[z].right
		xParent = l.nodes[z].parent
		l.transplant(z, l.nodes[z].right)
	} else if l.nodes[z].right == nilIndex {
		x = l.nodes[z].left
		xParent = l.nodes[z].parent
		l.transplant(z, l.nodes[z].left)
	} else {
		y = l.min(l.nodes[z].right)
		yOriginalColor = l.colorOf(y)
		x = l.nodes[y].right
		if l.nodes[y].parent == z {
			xParent = y
		} else {
			xParent = l.nodes[y].parent
			l.transplant(y, l.nodes[y].right)
			l.nodes[y].right = l.nodes[z].right
			l.nodes[l.nodes[y].right].parent = y
		}
		l.transplant(z, y)
		l.nodes[y].left = l.nodes[z].left
		l.nodes[l.nodes[y].left].parent = y
		l.nodes[y].color = l.nodes[z].color
	}

	if yOriginalColor == black {
		l.deleteFixup(x, xParent)
	}

	l.count--
	l.free_(z)
}

func (l *List) transplant(u, v int) {
	if l.nodes[u].parent == nilIndex {
		l.root = v
	} else if u == l.nodes[l.nodes[u].parent].left {
		l.nodes[l.nodes[u].parent].left = v
	} else {
		l.nodes[l.nodes[u].parent].right = v
	}
	if v != nilIndex {
		l.nodes[v].parent = l.nodes[u].parent
	}
}

func (l *List) deleteFixup(x, xParent int) {
	for x != l.root && l.colorOf(x) == black {
		if xParent == nilIndex {
			break
		}
		if x == l.nodes[xParent].left {
			w := l.nodes[xParent].right
			if l.colorOf(w) == red {
				l.nodes[w].color = black
				l.nodes[xParent].color = red
				l.leftRotate(xParent)
				w = l.nodes[xParent].right
			}
			if l.colorOf(l.nodes[w].left) == black && l.colorOf(l.nodes[w].right) == black {
				l.nodes[w].color = red
				x = xParent
				xParent = l.nodes[x].parent
			} else {
				if l.colorOf(l.nodes[w].right) == black {
					if l.nodes[w].left != nilIndex {
						l.nodes[l.nodes[w].left].color = black
					}
					l.nodes[w].color = red
					l.rightRotate(w)
					w = l.nodes[xParent].right
				}
				l.nodes[w].color = l.nodes[xParent].color
				l.nodes[xParent].color = black
				if l.nodes[w].right != nilIndex {
					l.nodes[l.nodes[w].right].color = black
				}
				l.leftRotate(xParent)
				x = l.root
			}
		} else {
			w := l.nodes[xParent].left
			if l.colorOf(w) == red {
				l.nodes[w].color = black
				l.nodes[xParent].color = red
				l.rightRotate(xParent)
				w = l.nodes[xParent].left
			}
			if l.colorOf(l.nodes[w].right) == black && l.colorOf(l.nodes[w].left) == black {
				l.nodes[w].color = red
				x = xParent
				xParent = l.nodes[x].parent
			} else {
				if l.colorOf(l.nodes[w].left) == black {
					if l.nodes[w].right != nilIndex {
						l.nodes[l.nodes[w].right].color = black
					}
					l.nodes[w].color = red
					l.leftRotate(w)
					w = l.nodes[xParent].left
				}
				l.nodes[w].color = l.nodes[xParent].color
				l.nodes[xParent].color = black
				if l.nodes[w].left != nilIndex {
					l.nodes[l.nodes[w].left].color = black
				}
				l.rightRotate(xParent)
				x = l.root
			}
		}
	}
	if x != nilIndex {
		l.nodes[x].color = black
	}
}

func (l *List) min(x int) int {
	for l.nodes[x].left != nilIndex {
		x = l.nodes[x].left
	}
	return x
}

func (l *List) max(x int) int {
	for l.nodes[x].right != nilIndex {
		x = l.nodes[x].right
	}
	return x
}

// Item is a snapshot of a list entry's contents, returned by First/Last/
// Next/Prev/Find so callers never hold a raw arena index past a Delete.
type Item struct {
	Handle int
	Key    float64
	Index  uint32
	Data   any
}

func (l *List) itemAt(idx int) (Item, bool) {
	if idx == nilIndex {
		return Item{}, false
	}
	n := l.nodes[idx]
	return Item{Handle: idx, Key: n.key, Index: n.index, Data: n.data}, true
}

// First returns the item with the smallest key, matching LbSortFirst.
func (l *List) First() (Item, bool) {
	if l.root == nilIndex {
		return Item{}, false
	}
	return l.itemAt(l.min(l.root))
}

// Last returns the item with the largest key, matching LbSortLast.
func (l *List) Last() (Item, bool) {
	if l.root == nilIndex {
		return Item{}, false
	}
	return l.itemAt(l.max(l.root))
}

// Next returns the in-order successor of h, matching LbSortNext.
func (l *List) Next(h int) (Item, bool) {
	x := h
	if l.nodes[x].right != nilIndex {
		return l.itemAt(l.min(l.nodes[x].right))
	}
	y := l.nodes[x].parent
	for y != nilIndex && x == l.nodes[y].right {
		x = y
		y = l.nodes[y].parent
	}
	return l.itemAt(y)
}

// Prev returns the in-order predecessor of h, matching LbSortPrev.
func (l *List) Prev(h int) (Item, bool) {
	x := h
	if l.nodes[x].left != nilIndex {
		return l.itemAt(l.max(l.nodes[x].left))
	}
	y := l.nodes[x].parent
	for y != nilIndex && x == l.nodes[y].left {
		x = y
		y = l.nodes[y].parent
	}
	return l.itemAt(y)
}

// Find returns the last (largest-key) item with key <= minKey, matching
// LbSortFind's documented behaviour exactly ("Find the last list item in
// the sorted list <= minSortKey").
func (l *List) Find(minKey float64) (Item, bool) {
	x := l.root
	best := nilIndex
	for x != nilIndex {
		if l.nodes[x].key <= minKey {
			best = x
			x = l.nodes[x].right
		} else {
			x = l.nodes[x].left
		}
	}
	return l.itemAt(best)
}
