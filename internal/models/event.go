// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package models

import "time"

// EventKind tags a domain event in the live-update stream.
type EventKind string

// Event kinds published by the write path.
const (
	EventPostCreated EventKind = "post.created"
	EventPostFlagged EventKind = "post.flagged"
	EventPostUnflag  EventKind = "post.unflagged"
	EventPostNuked   EventKind = "post.nuked"
)

// Event is one entry in the live-update stream. Events are immutable once
// appended; ordering is total and defined solely by ID. IDs are assigned
// in append order starting at 1 with no gaps (gaps can appear to a reader
// only through log eviction).
type Event struct {
	ID         int64     `json:"id"`
	Kind       EventKind `json:"kind"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PostSummary is the payload carried by post lifecycle events. It is a
// deliberately small projection of Post: long-poll responses stay cheap
// and clients re-fetch the thread when they need full bodies.
type PostSummary struct {
	PostID   int64  `json:"post_id"`
	ThreadID int64  `json:"thread_id"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Author   string `json:"author"`
	Excerpt  string `json:"excerpt"`
}

// FlagChange is the payload carried by moderation events.
type FlagChange struct {
	PostID   int64          `json:"post_id"`
	ThreadID int64          `json:"thread_id"`
	Flag     ModerationFlag `json:"flag"`
	Set      bool           `json:"set"`
}

// excerptLen bounds the body excerpt embedded in PostSummary payloads.
const excerptLen = 120

// Excerpt returns the leading portion of body suitable for an event payload.
func Excerpt(body string) string {
	runes := []rune(body)
	if len(runes) <= excerptLen {
		return body
	}
	return string(runes[:excerptLen])
}
