// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

// Package matcher provides Gomega matchers for server records.
package matcher

import (
	"fmt"

	"github.com/siemens/valpanel/store"

	g "github.com/onsi/gomega"
	"github.com/onsi/gomega/types"
)

// HaveServerSlugID succeeds if ACTUAL is either a store.Server or
// *store.Server with the specified slug or ID. Alternatively of a slug/ID
// string, a GomegaMatcher can also be specified for matching the slug or
// ID, such as ContainSubstring and MatchRegexp.
func HaveServerSlugID(slugorid interface{}) types.GomegaMatcher {
	var slugoridMatcher types.GomegaMatcher
	switch slugorid := slugorid.(type) {
	case string:
		slugoridMatcher = g.Equal(slugorid)
	case types.GomegaMatcher:
		slugoridMatcher = slugorid
	default:
		panic("slugorid argument must be string or GomegaMatcher")
	}
	return g.SatisfyAny(
		g.WithTransform(func(actual interface{}) (string, error) {
			switch server := actual.(type) {
			case *store.Server:
				return server.ID, nil
			case store.Server:
				return server.ID, nil
			}
			return "", fmt.Errorf("HaveServerSlugID expects a store.Server or *store.Server, but got %T", actual)
		}, slugoridMatcher),
		g.WithTransform(func(actual interface{}) (string, error) {
			switch server := actual.(type) {
			case *store.Server:
				return server.Slug, nil
			case store.Server:
				return server.Slug, nil
			}
			return "", fmt.Errorf("HaveServerSlugID expects a store.Server or *store.Server, but got %T", actual)
		}, slugoridMatcher),
	)
}
