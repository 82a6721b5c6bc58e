// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package board glues the write path together: every state change goes
// through the store first, then publishes a corresponding event to the
// dispatcher, in that order. Readers polling the event stream therefore
// never learn about a post before the store can serve it.
package board

import (
	"context"

	"github.com/tomtom215/agora/internal/dispatcher"
	"github.com/tomtom215/agora/internal/logging"
	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/store"
)

// Service is the write-path entry point used by the HTTP handlers.
type Service struct {
	store *store.Store
	disp  *dispatcher.Dispatcher
}

// New creates the write-path service.
func New(st *store.Store, disp *dispatcher.Dispatcher) *Service {
	return &Service{store: st, disp: disp}
}

// CreatePost stores a new post and publishes a post.created event.
// A nil parentID starts a new thread.
func (s *Service) CreatePost(ctx context.Context, parentID *int64, author, body string) (*models.Post, error) {
	post, err := s.store.CreatePost(ctx, parentID, author, body)
	if err != nil {
		return nil, err
	}

	ev := s.disp.Publish(models.EventPostCreated, models.PostSummary{
		PostID:   post.ID,
		ThreadID: post.ThreadID,
		ParentID: post.ParentID,
		Author:   post.Author,
		Excerpt:  models.Excerpt(post.Body),
	})
	logging.Ctx(ctx).Info().
		Int64("post_id", post.ID).
		Int64("thread_id", post.ThreadID).
		Int64("event_id", ev.ID).
		Msg("post created")
	return post, nil
}

// FlagPost adds a moderation flag and publishes the matching event. The
// nuked flag gets its own event kind so clients can drop the hidden
// subtree without re-fetching. Setting a flag that is already present is
// a no-op and publishes nothing.
func (s *Service) FlagPost(ctx context.Context, postID int64, flag models.ModerationFlag) (*models.Post, error) {
	post, changed, err := s.store.SetFlag(ctx, postID, flag)
	if err != nil {
		return nil, err
	}
	if !changed {
		return post, nil
	}

	kind := models.EventPostFlagged
	if flag == models.FlagNuked {
		kind = models.EventPostNuked
	}
	ev := s.disp.Publish(kind, models.FlagChange{
		PostID:   post.ID,
		ThreadID: post.ThreadID,
		Flag:     flag,
		Set:      true,
	})
	logging.Ctx(ctx).Info().
		Int64("post_id", post.ID).
		Str("flag", string(flag)).
		Int64("event_id", ev.ID).
		Msg("post flagged")
	return post, nil
}

// UnflagPost removes a moderation flag and publishes post.unflagged.
// Clearing an absent flag is a no-op and publishes nothing.
func (s *Service) UnflagPost(ctx context.Context, postID int64, flag models.ModerationFlag) (*models.Post, error) {
	post, changed, err := s.store.ClearFlag(ctx, postID, flag)
	if err != nil {
		return nil, err
	}
	if !changed {
		return post, nil
	}

	ev := s.disp.Publish(models.EventPostUnflag, models.FlagChange{
		PostID:   post.ID,
		ThreadID: post.ThreadID,
		Flag:     flag,
		Set:      false,
	})
	logging.Ctx(ctx).Info().
		Int64("post_id", post.ID).
		Str("flag", string(flag)).
		Int64("event_id", ev.ID).
		Msg("post unflagged")
	return post, nil
}
