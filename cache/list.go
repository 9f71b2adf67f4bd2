package cache

// listNode is a node in a doubly-linked recency list. It stores the key so
// the owning map entry can be found when the node is evicted.
type listNode[K comparable] struct {
	key  K
	prev *listNode[K]
	next *listNode[K]
}

// recencyList orders keys from most (head) to least (tail) recently used.
// Not thread-safe; the owning cache synchronizes.
type recencyList[K comparable] struct {
	head *listNode[K]
	tail *listNode[K]
	len  int
}

// Len returns the number of nodes in the list.
func (l *recencyList[K]) Len() int {
	return l.len
}

// PushFront inserts key as the most recently used and returns its node.
func (l *recencyList[K]) PushFront(key K) *listNode[K] {
	node := &listNode[K]{key: key}
	l.linkFront(node)
	return node
}

// MoveToFront marks node as the most recently used.
func (l *recencyList[K]) MoveToFront(node *listNode[K]) {
	if node == nil || node == l.head {
		return
	}
	l.unlink(node)
	l.linkFront(node)
}

// Remove unlinks node from the list.
func (l *recencyList[K]) Remove(node *listNode[K]) {
	if node != nil {
		l.unlink(node)
	}
}

// Oldest returns the least recently used key without removing it.
func (l *recencyList[K]) Oldest() (K, bool) {
	if l.tail == nil {
		var zero K
		return zero, false
	}
	return l.tail.key, true
}

// Clear drops every node.
func (l *recencyList[K]) Clear() {
	l.head = nil
	l.tail = nil
	l.len = 0
}

func (l *recencyList[K]) linkFront(node *listNode[K]) {
	node.prev = nil
	node.next = l.head
	if l.head != nil {
		l.head.prev = node
	}
	l.head = node
	if l.tail == nil {
		l.tail = node
	}
	l.len++
}

func (l *recencyList[K]) unlink(node *listNode[K]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev = nil
	node.next = nil
	l.len--
}
