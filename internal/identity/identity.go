// Package identity checks that a handle belongs to an existing account on
// the identity provider.
package identity

import (
	"context"
	"log"
	"strings"

	"signup/internal/roblox"
)

type Status string

const (
	Confirmed     Status = "confirmed"
	NotFound      Status = "not-found"
	Indeterminate Status = "indeterminate"
)

type Result struct {
	Status Status
	// Err is the provider failure behind an Indeterminate result.
	Err error
}

type Searcher interface {
	Search(ctx context.Context, keyword string, limit int) ([]roblox.User, error)
}

type Verifier struct {
	searcher Searcher
	limit    int
}

func NewVerifier(searcher Searcher) *Verifier {
	return &Verifier{searcher: searcher, limit: 10}
}

// Verify expects a handle that already passed format validation. Provider
// failures yield Indeterminate, never NotFound.
func (v *Verifier) Verify(ctx context.Context, handle string) Result {
	users, err := v.searcher.Search(ctx, handle, v.limit)
	if err != nil {
		log.Printf("Roblox validation failed for %q (CORS/network): %v", handle, err)
		return Result{Status: Indeterminate, Err: err}
	}

	for _, u := range users {
		if strings.EqualFold(u.Name, handle) {
			return Result{Status: Confirmed}
		}
	}
	return Result{Status: NotFound}
}
