// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance; validator caches struct
// metadata, so a single instance is the intended usage.
var validate = validator.New(validator.WithRequiredStructEnabled())

// CreatePostRequest is the body for POST /api/v1/posts.
// A nil parent_id starts a new thread.
type CreatePostRequest struct {
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
	Author   string `json:"author"    validate:"required,min=1,max=64"`
	Body     string `json:"body"      validate:"required,min=1,max=65536"`
}

// FlagRequest is the body for POST /api/v1/posts/{id}/flags.
type FlagRequest struct {
	Flag string `json:"flag" validate:"required,min=1,max=32"`
}

// validateRequest runs struct validation and returns a client-facing
// message for the first failure, or "" when valid.
func validateRequest(req any) string {
	err := validate.Struct(req)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("field %q failed validation rule %q", fe.Field(), fe.Tag())
	}
	return "invalid request body"
}

// queryInt64 parses an int64 query parameter, returning def when absent.
// The bool reports whether the value parsed cleanly.
func queryInt64(r *http.Request, name string, def int64) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
