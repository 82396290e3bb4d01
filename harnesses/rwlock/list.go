package main

type node struct {
	key  int
	next *node
}

// list is a sorted singly linked set of ints. It is not safe for
// concurrent use; callers hold a locker.
type list struct {
	head *node
}

func (l *list) member(key int) bool {
	n := l.head
	for n != nil && n.key < key {
		n = n.next
	}

	return n != nil && n.key == key
}

// insert adds key and reports false if it was already present.
func (l *list) insert(key int) bool {
	link := &l.head
	for *link != nil && (*link).key < key {
		link = &(*link).next
	}

	if *link != nil && (*link).key == key {
		return false
	}

	*link = &node{key: key, next: *link}

	return true
}

// delete removes key and reports false if it was absent.
func (l *list) delete(key int) bool {
	link := &l.head
	for *link != nil && (*link).key < key {
		link = &(*link).next
	}

	if *link == nil || (*link).key != key {
		return false
	}

	*link = (*link).next

	return true
}

func (l *list) keys() []int {
	var out []int
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.key)
	}

	return out
}
