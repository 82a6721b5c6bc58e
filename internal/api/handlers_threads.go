// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tomtom215/agora/internal/models"
)

// ThreadsResponse carries assembled, pruned threads in the order the
// client requested them. Ids whose thread does not exist are absent.
type ThreadsResponse struct {
	Threads []models.Thread `json:"threads"`
}

// Threads returns one or more threads with nuked subtrees already pruned.
//
// Method: GET
// Path: /api/v1/threads?id=1&id=5 (repeated or comma-separated)
//
// Missing ids are not errors: they are simply absent from the result.
func (h *Handler) Threads(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	rootIDs, err := parseThreadIDs(r, h.cfg.API.MaxThreadIDs)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	result, err := h.assembler.GetThreads(r.Context(), rootIDs)
	if err != nil {
		rw.InternalError("failed to fetch threads", err)
		return
	}
	if result == nil {
		result = []models.Thread{}
	}
	rw.Success(ThreadsResponse{Threads: result})
}

// RecentThreadsResponse carries root posts newest-first plus the cursor
// for the next page (0 when exhausted).
type RecentThreadsResponse struct {
	Roots      []*models.Post `json:"roots"`
	NextBefore int64          `json:"next_before"`
}

// RecentThreads lists recent thread roots with cursor pagination.
//
// Method: GET
// Path: /api/v1/threads/recent?limit=N&before=ID
func (h *Handler) RecentThreads(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit, ok := queryInt64(r, "limit", int64(h.cfg.API.RecentPageSize))
	if !ok || limit < 1 || limit > 100 {
		rw.BadRequest("limit must be between 1 and 100")
		return
	}
	before, ok := queryInt64(r, "before", 0)
	if !ok || before < 0 {
		rw.BadRequest("before must be a non-negative integer")
		return
	}

	roots, err := h.store.ListRecentThreads(r.Context(), int(limit), before)
	if err != nil {
		rw.InternalError("failed to list recent threads", err)
		return
	}

	var nextBefore int64
	if len(roots) == int(limit) {
		nextBefore = roots[len(roots)-1].ID
	}
	if roots == nil {
		roots = []*models.Post{}
	}
	rw.Success(RecentThreadsResponse{Roots: roots, NextBefore: nextBefore})
}

// parseThreadIDs accepts repeated id params and comma-separated lists:
// ?id=1&id=5 and ?id=1,5 are equivalent.
func parseThreadIDs(r *http.Request, maxIDs int) ([]int64, error) {
	var ids []int64
	for _, raw := range r.URL.Query()["id"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id < 1 {
				return nil, fmt.Errorf("invalid thread id %q", part)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one id parameter is required")
	}
	if len(ids) > maxIDs {
		return nil, fmt.Errorf("too many thread ids: %d (max %d)", len(ids), maxIDs)
	}
	return ids, nil
}
