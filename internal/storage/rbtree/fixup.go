package rbtree

import "github.com/neekrasov/kvstore/internal/model"

// placeNewNode walks down from the root to find n's spot by key order
// and links it in as a leaf. Callers must hold e.mu. Returns false if a
// node with n's key already exists, leaving the tree untouched.
func (e *Engine) placeNewNode(n *node) bool {
	cur := e.root
	if cur == nil {
		e.root = n
		return true
	}
	for {
		if n.key == cur.key {
			return false
		}
		n.parent = cur
		if n.key < cur.key {
			cur = cur.left
		} else {
			cur = cur.right
		}
		if cur == nil {
			break
		}
	}
	if n.key < n.parent.key {
		n.parent.left = n
	} else {
		n.parent.right = n
	}
	return true
}

// findNode locates the node for key, or nil. Callers must hold e.mu.
func (e *Engine) findNode(key model.Key) *node {
	cur := e.root
	for cur != nil && cur.key != key {
		if cur.key > key {
			cur = cur.left
		} else {
			cur = cur.right
		}
	}
	return cur
}

func grandParent(n *node) *node {
	if n.parent != nil {
		return n.parent.parent
	}
	return nil
}

func uncle(n *node) *node {
	gp := grandParent(n)
	if gp == nil {
		return nil
	}
	if n.parent == gp.left {
		return gp.right
	}
	return gp.left
}

func sibling(n *node) *node {
	if n == nil || n.parent == nil {
		return nil
	}
	if n == n.parent.left {
		return n.parent.right
	}
	return n.parent.left
}

func (e *Engine) rotateLeft(n *node) {
	newRoot := n.right

	newRoot.parent = n.parent
	if n.parent == nil {
		e.root = newRoot
	} else if n.parent.left == n {
		n.parent.left = newRoot
	} else {
		n.parent.right = newRoot
	}

	n.right = newRoot.left
	if newRoot.left != nil {
		newRoot.left.parent = n
	}

	n.parent = newRoot
	newRoot.left = n
}

func (e *Engine) rotateRight(n *node) {
	newRoot := n.left

	newRoot.parent = n.parent
	if n.parent == nil {
		e.root = newRoot
	} else if n.parent.left == n {
		n.parent.left = newRoot
	} else {
		n.parent.right = newRoot
	}

	n.left = newRoot.right
	if newRoot.right != nil {
		newRoot.right.parent = n
	}

	n.parent = newRoot
	newRoot.right = n
}

func (e *Engine) insertCase1(n *node) {
	if n.parent == nil {
		n.color = black
		return
	}
	e.insertCase2(n)
}

func (e *Engine) insertCase2(n *node) {
	if n.parent.color == black {
		return
	}
	e.insertCase3(n)
}

func (e *Engine) insertCase3(n *node) {
	u := uncle(n)
	if u != nil && u.color == red {
		n.parent.color = black
		u.color = black
		g := grandParent(n)
		g.color = red
		e.insertCase1(g)
		return
	}
	e.insertCase4(n)
}

func (e *Engine) insertCase4(n *node) {
	g := grandParent(n)
	if n == n.parent.right && n.parent == g.left {
		e.rotateLeft(n.parent)
		n = n.left
	} else if n == n.parent.left && n.parent == g.right {
		e.rotateRight(n.parent)
		n = n.right
	}
	e.insertCase5(n)
}

func (e *Engine) insertCase5(n *node) {
	g := grandParent(n)
	n.parent.color = black
	g.color = red
	if n == n.parent.left && n.parent == g.left {
		e.rotateRight(g)
	} else {
		e.rotateLeft(g)
	}
}

// deleteCase1 is entered with n standing in for the node physically
// removed from the tree (already black, already unlinked from its one
// remaining child). If n has no parent it was the root: clear it if it
// was also the last item, since e.size hasn't been decremented yet.
func (e *Engine) deleteCase1(n *node) model.Error {
	if n.parent != nil {
		return e.deleteCase2(n)
	}
	if e.size == 1 {
		e.root = nil
	}
	return model.Ok
}

func (e *Engine) deleteCase2(n *node) model.Error {
	s := sibling(n)
	if s != nil && s.color == red {
		n.parent.color = red
		s.color = black
		if n == n.parent.left {
			e.rotateLeft(n.parent)
		} else {
			e.rotateRight(n.parent)
		}
	}
	return e.deleteCase3(n)
}

func (e *Engine) deleteCase3(n *node) model.Error {
	s := sibling(n)
	if n.parent.color == black && s != nil && s.color == black &&
		(s.left == nil || s.left.color == black) &&
		(s.right == nil || s.right.color == black) {
		s.color = red
		return e.deleteCase1(n.parent)
	}
	return e.deleteCase4(n)
}

func (e *Engine) deleteCase4(n *node) model.Error {
	s := sibling(n)
	if n.parent.color == red && s != nil && s.color == black &&
		(s.left == nil || s.left.color == black) &&
		(s.right == nil || s.right.color == black) {
		s.color = red
		n.parent.color = black
		return model.Ok
	}
	return e.deleteCase5(n)
}

func (e *Engine) deleteCase5(n *node) model.Error {
	s := sibling(n)
	if s != nil && s.color == black {
		if n == n.parent.left &&
			(s.right == nil || s.right.color == black) &&
			s.left != nil && s.left.color == red {
			s.color = red
			s.left.color = black
			e.rotateRight(s)
		} else if n == n.parent.right &&
			(s.left == nil || s.left.color == black) &&
			s.right != nil && s.right.color == red {
			s.color = red
			s.right.color = black
			e.rotateLeft(s)
		}
	}
	return e.deleteCase6(n)
}

func (e *Engine) deleteCase6(n *node) model.Error {
	s := sibling(n)
	if s == nil {
		return model.Unknown
	}

	s.color = n.parent.color
	n.parent.color = black

	if n == n.parent.left && s.right != nil {
		s.right.color = black
		e.rotateLeft(n.parent)
	} else if n == n.parent.right && s.left != nil {
		s.left.color = black
		e.rotateRight(n.parent)
	} else {
		return model.Unknown
	}
	return model.Ok
}

// findMin descends to the leftmost (smallest-key) node of the subtree
// rooted at n.
func findMin(n *node) *node {
	if n == nil {
		return nil
	}
	for n.left != nil {
		n = n.left
	}
	return n
}

// nextElem returns n's in-order successor, or nil if n is the last node.
func (e *Engine) nextElem(n *node) *node {
	last := e.root
	for last.right != nil {
		last = last.right
	}

	if n.right != nil {
		return findMin(n.right)
	}
	if n.parent != nil && n != last {
		old := n
		cur := n.parent
		for cur.parent != nil && cur.right == old {
			old = cur
			cur = cur.parent
		}
		return cur
	}
	return nil
}
