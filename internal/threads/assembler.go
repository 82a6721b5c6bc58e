// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package threads implements the thread-tree read path: it reconstructs
// per-thread post trees from the flat parent-pointer records the store
// returns, and prunes subtrees beneath nuked posts before results leave
// the server.
//
// The assembler performs no locking of its own; it assumes each call
// receives a consistent snapshot from the store.
package threads

import (
	"context"
	"sort"

	"github.com/tomtom215/agora/internal/models"
)

// PostStore is the narrow contract the assembler consumes. Unknown
// thread ids are omitted from the result, never an error.
type PostStore interface {
	GetPostsByThreadIDs(ctx context.Context, ids []int64) ([]*models.Post, error)
}

// Assembler converts flat post collections into display-ordered threads.
type Assembler struct {
	store PostStore
}

// NewAssembler creates an assembler backed by the given store.
func NewAssembler(store PostStore) *Assembler {
	return &Assembler{store: store}
}

// AssembleThreads fetches all posts for the requested root thread ids and
// returns each thread's posts in pre-order: a post never appears before
// its parent. Root ids with no posts are silently omitted. Orphaned
// fragments (posts whose ancestors are missing from a partial fetch)
// are tolerated and ordered after the reachable tree.
func (a *Assembler) AssembleThreads(ctx context.Context, rootIDs []int64) (map[int64][]*models.Post, error) {
	ids := dedupe(rootIDs)
	if len(ids) == 0 {
		return map[int64][]*models.Post{}, nil
	}

	posts, err := a.store.GetPostsByThreadIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byThread := make(map[int64][]*models.Post)
	for _, p := range posts {
		byThread[p.ThreadID] = append(byThread[p.ThreadID], p)
	}

	out := make(map[int64][]*models.Post, len(byThread))
	for threadID, flat := range byThread {
		out[threadID] = orderThread(flat, threadID)
	}
	return out, nil
}

// GetThreads is the combined read path: assemble, then prune each thread.
// The result preserves the caller's requested id order (first occurrence
// wins on duplicates); ids whose thread vanished entirely - including a
// missing root post - are dropped, not errors.
func (a *Assembler) GetThreads(ctx context.Context, rootIDs []int64) ([]models.Thread, error) {
	assembled, err := a.AssembleThreads(ctx, rootIDs)
	if err != nil {
		return nil, err
	}

	out := make([]models.Thread, 0, len(assembled))
	seen := make(map[int64]bool, len(rootIDs))
	for _, id := range rootIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		posts := assembled[id]
		if len(posts) == 0 || posts[0].ID != id {
			continue
		}
		out = append(out, models.Thread{
			RootID: id,
			Posts:  PruneNukedSubtrees(posts),
		})
	}
	return out, nil
}

// orderThread produces the pre-order listing of one thread's posts.
// Children are visited in id order (ids are assigned in posting order, so
// this is also chronological). The true root leads; orphaned fragment
// heads follow in id order.
func orderThread(flat []*models.Post, rootID int64) []*models.Post {
	byID := make(map[int64]*models.Post, len(flat))
	for _, p := range flat {
		byID[p.ID] = p
	}

	children := make(map[int64][]*models.Post, len(flat))
	var heads []*models.Post
	for _, p := range flat {
		if p.ParentID != nil {
			if _, ok := byID[*p.ParentID]; ok {
				children[*p.ParentID] = append(children[*p.ParentID], p)
				continue
			}
		}
		heads = append(heads, p)
	}

	for _, c := range children {
		sort.Slice(c, func(i, j int) bool { return c[i].ID < c[j].ID })
	}
	sort.Slice(heads, func(i, j int) bool {
		if heads[i].ID == rootID {
			return true
		}
		if heads[j].ID == rootID {
			return false
		}
		return heads[i].ID < heads[j].ID
	})

	out := make([]*models.Post, 0, len(flat))
	var walk func(p *models.Post)
	walk = func(p *models.Post) {
		out = append(out, p)
		for _, c := range children[p.ID] {
			walk(c)
		}
	}
	for _, h := range heads {
		walk(h)
	}
	return out
}

// dedupe returns ids with duplicates removed, preserving first-occurrence
// order.
func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
