// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package models defines the shared data types for Agora.
//
// The two central types are Post (a node in a discussion thread) and Event
// (an entry in the live-update stream). Threads have no storage of their
// own: a thread is the set of posts sharing a ThreadID, viewed as a forest
// rooted at the post whose ID equals the ThreadID.
package models

import "time"

// ModerationFlag is a moderation marker attached to a post.
type ModerationFlag string

// Moderation flags. FlagNuked is distinguished: it hides the entire
// subtree beneath the flagged post, while the post itself stays visible
// so readers can see that a branch was removed.
const (
	FlagNuked    ModerationFlag = "nuked"
	FlagLocked   ModerationFlag = "locked"
	FlagPinned   ModerationFlag = "pinned"
	FlagReported ModerationFlag = "reported"
)

// KnownFlags lists every flag the moderation endpoints accept.
var KnownFlags = []ModerationFlag{FlagNuked, FlagLocked, FlagPinned, FlagReported}

// IsValid reports whether f is one of the known moderation flags.
func (f ModerationFlag) IsValid() bool {
	for _, k := range KnownFlags {
		if f == k {
			return true
		}
	}
	return false
}

// FlagSet is the set of moderation flags on a post.
// The zero value is an empty set.
type FlagSet []ModerationFlag

// Has reports whether the set contains the given flag.
func (s FlagSet) Has(f ModerationFlag) bool {
	for _, v := range s {
		if v == f {
			return true
		}
	}
	return false
}

// Add returns the set with the flag added. Adding a flag that is already
// present is a no-op.
func (s FlagSet) Add(f ModerationFlag) FlagSet {
	if s.Has(f) {
		return s
	}
	return append(s, f)
}

// Remove returns the set with the flag removed.
func (s FlagSet) Remove(f ModerationFlag) FlagSet {
	out := s[:0]
	for _, v := range s {
		if v != f {
			out = append(out, v)
		}
	}
	return out
}

// Post is a single message in a discussion thread.
//
// Invariants:
//   - A root post has ID == ThreadID and a nil ParentID.
//   - A non-root post's ParentID references an earlier post in the same
//     thread.
type Post struct {
	ID       int64  `json:"id"`
	ThreadID int64  `json:"thread_id"`
	ParentID *int64 `json:"parent_id,omitempty"`

	Author string `json:"author"`
	Body   string `json:"body"`

	PostedAt time.Time `json:"posted_at"`

	Flags FlagSet `json:"flags,omitempty"`
}

// IsRoot reports whether the post is the root of its thread.
func (p *Post) IsRoot() bool {
	return p.ParentID == nil && p.ID == p.ThreadID
}

// Nuked reports whether the post carries the nuked flag.
func (p *Post) Nuked() bool {
	return p.Flags.Has(FlagNuked)
}

// Thread is one assembled, pruned discussion thread.
// Posts are ordered parent-before-child (pre-order).
type Thread struct {
	RootID int64   `json:"root_id"`
	Posts  []*Post `json:"posts"`
}
