package services

import (
	"sort"

	"lyceum/internal/models"
)

// BuildTree turns the flat comments of one post into a forest ordered oldest first at
// every level.
//
// A comment whose parent is not in the set (hard-deleted elsewhere, or never existed) is
// promoted to a root instead of being dropped. Parent links that form a cycle are cut at
// the earliest comment of the cycle, which then becomes a root. Every input comment
// appears exactly once in the output.
func BuildTree(flat []models.Comment) []*CommentNode {
	nodes := make(map[string]*CommentNode, len(flat))
	order := make([]*CommentNode, 0, len(flat))
	for _, c := range flat {
		if _, dup := nodes[c.ID]; dup {
			continue
		}
		n := &CommentNode{CommentView: commentView(c), Replies: []*CommentNode{}}
		nodes[c.ID] = n
		order = append(order, n)
	}
	sortNodes(order)

	parent := make(map[string]string, len(order))
	for _, n := range order {
		if n.ParentID == nil {
			continue
		}
		if _, ok := nodes[*n.ParentID]; ok && *n.ParentID != n.ID {
			parent[n.ID] = *n.ParentID
		}
	}
	breakCycles(order, parent)

	roots := make([]*CommentNode, 0)
	for _, n := range order {
		if pid, ok := parent[n.ID]; ok {
			p := nodes[pid]
			p.Replies = append(p.Replies, n)
			continue
		}
		roots = append(roots, n)
	}
	// order was sorted before linking, so every replies slice is already chronological
	return roots
}

// breakCycles walks each comment's ancestor chain in chronological order; when a walk comes
// back to its starting comment, that comment's parent link is removed.
func breakCycles(order []*CommentNode, parent map[string]string) {
	for _, n := range order {
		seen := map[string]bool{n.ID: true}
		for cur, ok := parent[n.ID]; ok; cur, ok = parent[cur] {
			if cur == n.ID {
				delete(parent, n.ID)
				break
			}
			if seen[cur] {
				// loops further up; cut when its own member is visited
				break
			}
			seen[cur] = true
		}
	}
}

func sortNodes(nodes []*CommentNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
