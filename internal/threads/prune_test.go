// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package threads

import (
	"testing"

	"github.com/tomtom215/agora/internal/models"
)

func post(id, threadID int64, parentID *int64, flags ...models.ModerationFlag) *models.Post {
	return &models.Post{
		ID:       id,
		ThreadID: threadID,
		ParentID: parentID,
		Author:   "tester",
		Body:     "body",
		Flags:    models.FlagSet(flags),
	}
}

func ptr(v int64) *int64 { return &v }

func ids(posts []*models.Post) []int64 {
	out := make([]int64, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}

func equalIDs(a []int64, b ...int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPruneKeepsNukedPostDropsDescendants(t *testing.T) {
	// 1 -> 2(nuked) -> 3, and 4 replying to 1.
	posts := []*models.Post{
		post(1, 1, nil),
		post(2, 1, ptr(1), models.FlagNuked),
		post(3, 1, ptr(2)),
		post(4, 1, ptr(1)),
	}

	got := ids(PruneNukedSubtrees(posts))
	if !equalIDs(got, 1, 2, 4) {
		t.Errorf("pruned IDs = %v, want [1 2 4]", got)
	}
}

func TestPruneDropsDeepDescendantsRegardlessOfFlags(t *testing.T) {
	// A nuked post under a nuked post: everything below the topmost
	// nuke disappears, including posts with no flags of their own.
	posts := []*models.Post{
		post(1, 1, nil, models.FlagNuked),
		post(2, 1, ptr(1)),
		post(3, 1, ptr(2), models.FlagPinned),
		post(4, 1, ptr(3)),
	}

	got := ids(PruneNukedSubtrees(posts))
	if !equalIDs(got, 1) {
		t.Errorf("pruned IDs = %v, want [1]", got)
	}
}

func TestPruneLeavesSiblingBranchesIntact(t *testing.T) {
	posts := []*models.Post{
		post(1, 1, nil),
		post(2, 1, ptr(1), models.FlagNuked),
		post(3, 1, ptr(2)),
		post(4, 1, ptr(1)),
		post(5, 1, ptr(4)),
	}

	got := ids(PruneNukedSubtrees(posts))
	if !equalIDs(got, 1, 2, 4, 5) {
		t.Errorf("pruned IDs = %v, want [1 2 4 5]", got)
	}
}

func TestPruneNoNukes(t *testing.T) {
	posts := []*models.Post{
		post(1, 1, nil),
		post(2, 1, ptr(1), models.FlagReported),
		post(3, 1, ptr(1)),
	}

	got := ids(PruneNukedSubtrees(posts))
	if !equalIDs(got, 1, 2, 3) {
		t.Errorf("pruned IDs = %v, want [1 2 3]", got)
	}
}

func TestPruneEmptyInput(t *testing.T) {
	if got := PruneNukedSubtrees(nil); got != nil {
		t.Errorf("PruneNukedSubtrees(nil) = %v, want nil", got)
	}
}

func TestPruneOrphanUnderNukedMissingParent(t *testing.T) {
	// Post 3's parent (2, nuked) is present so 3 goes; post 5's parent
	// is absent entirely, so 5 is treated as a fragment head and kept.
	posts := []*models.Post{
		post(1, 1, nil),
		post(2, 1, ptr(1), models.FlagNuked),
		post(3, 1, ptr(2)),
		post(5, 1, ptr(9)),
	}

	got := ids(PruneNukedSubtrees(posts))
	if !equalIDs(got, 1, 2, 5) {
		t.Errorf("pruned IDs = %v, want [1 2 5]", got)
	}
}
