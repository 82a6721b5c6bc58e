// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package threads

import "github.com/tomtom215/agora/internal/models"

// PruneNukedSubtrees filters one thread's posts for display. A post is
// kept unless any ancestor carries the nuked flag. A nuked post itself
// stays in the result - readers should see that the branch exists and was
// removed - but every descendant is dropped recursively, regardless of the
// descendant's own flags. Sibling branches are untouched.
//
// The input is a flat parent-pointer list; the walk indexes children by
// parent id in one pass and traverses in a second, so the whole operation
// is linear in thread size. Input order is preserved among kept posts:
// fragment heads and children are visited in the order they appear.
func PruneNukedSubtrees(posts []*models.Post) []*models.Post {
	if len(posts) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	children := make(map[int64][]*models.Post, len(posts))
	var heads []*models.Post
	for _, p := range posts {
		if p.ParentID != nil {
			if _, ok := byID[*p.ParentID]; ok {
				children[*p.ParentID] = append(children[*p.ParentID], p)
				continue
			}
		}
		heads = append(heads, p)
	}

	out := make([]*models.Post, 0, len(posts))
	var walk func(p *models.Post)
	walk = func(p *models.Post) {
		out = append(out, p)
		if p.Nuked() {
			// The nuke marker stays visible; the conversation
			// beneath it is silenced.
			return
		}
		for _, c := range children[p.ID] {
			walk(c)
		}
	}
	for _, h := range heads {
		walk(h)
	}
	return out
}
