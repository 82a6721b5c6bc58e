// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/store"
)

// CreatePost creates a post and publishes the corresponding event.
//
// Method: POST
// Path: /api/v1/posts
//
// A nil parent_id starts a new thread. Replying to a missing parent is
// 404; replying under a nuked post or into a locked thread is 409.
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if msg := validateRequest(&req); msg != "" {
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, msg)
		return
	}

	post, err := h.board.CreatePost(r.Context(), req.ParentID, req.Author, req.Body)
	switch {
	case errors.Is(err, store.ErrParentNotFound):
		rw.NotFound("parent post does not exist")
		return
	case errors.Is(err, store.ErrParentNuked):
		rw.Error(http.StatusConflict, ErrCodeConflict, "cannot reply to a nuked post")
		return
	case errors.Is(err, store.ErrThreadLocked):
		rw.Error(http.StatusConflict, ErrCodeConflict, "thread is locked")
		return
	case err != nil:
		rw.InternalError("failed to create post", err)
		return
	}
	rw.Created(post)
}

// FlagPost adds a moderation flag to a post.
//
// Method: POST
// Path: /api/v1/posts/{id}/flags
func (h *Handler) FlagPost(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	postID, ok := postIDParam(r)
	if !ok {
		rw.BadRequest("invalid post id")
		return
	}

	var req FlagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rw.BadRequest("invalid JSON body")
		return
	}
	if msg := validateRequest(&req); msg != "" {
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, msg)
		return
	}
	flag := models.ModerationFlag(req.Flag)
	if !flag.IsValid() {
		rw.BadRequest("unknown moderation flag")
		return
	}

	post, err := h.board.FlagPost(r.Context(), postID, flag)
	switch {
	case errors.Is(err, store.ErrPostNotFound):
		rw.NotFound("post does not exist")
		return
	case err != nil:
		rw.InternalError("failed to flag post", err)
		return
	}
	rw.Success(post)
}

// UnflagPost removes a moderation flag from a post.
//
// Method: DELETE
// Path: /api/v1/posts/{id}/flags/{flag}
func (h *Handler) UnflagPost(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	postID, ok := postIDParam(r)
	if !ok {
		rw.BadRequest("invalid post id")
		return
	}
	flag := models.ModerationFlag(chi.URLParam(r, "flag"))
	if !flag.IsValid() {
		rw.BadRequest("unknown moderation flag")
		return
	}

	post, err := h.board.UnflagPost(r.Context(), postID, flag)
	switch {
	case errors.Is(err, store.ErrPostNotFound):
		rw.NotFound("post does not exist")
		return
	case err != nil:
		rw.InternalError("failed to unflag post", err)
		return
	}
	rw.Success(post)
}

func postIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}
