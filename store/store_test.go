// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("slugs", func() {

	It("derives filesystem-safe slugs", func() {
		Expect(Slugify("Midgard Mondays")).To(Equal("midgard-mondays"))
		Expect(Slugify("  Töpferei!! 42 ")).To(Equal("t-pferei-42"))
		Expect(Slugify("---")).To(Equal("server"))
		Expect(Slugify("")).To(Equal("server"))
	})

})

// All record store implementations share one behavior contract.
func describeStore(kind string, newStore func() Store) bool {

	return Describe(kind+" record store", func() {

		var s Store
		var ctx context.Context

		BeforeEach(func() {
			s = newStore()
			ctx = context.Background()
		})

		newServer := func(id, name string, base int) Server {
			now := time.Now().Round(time.Millisecond).UTC()
			return Server{
				ID:           id,
				Name:         name,
				Slug:         Slugify(name),
				WorldName:    "midgard",
				Password:     "sekrit",
				BasePort:     base,
				DesiredState: DesiredStopped,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
		}

		It("reports missing records", func() {
			Expect(s.Get(ctx, "nope")).Error().To(MatchError(ErrNotFound))
			Expect(s.GetBySlug(ctx, "nope")).Error().To(MatchError(ErrNotFound))
			Expect(s.Update(ctx, newServer("nope", "Nope", 1000))).To(MatchError(ErrNotFound))
			Expect(s.Delete(ctx, "nope")).To(MatchError(ErrNotFound))
		})

		It("creates and reads back records", func() {
			srv := newServer("id-1", "Alpha", 24560)
			Expect(s.Create(ctx, srv)).To(Succeed())
			Expect(s.Get(ctx, "id-1")).To(Equal(srv))
			Expect(s.GetBySlug(ctx, "alpha")).To(Equal(srv))
		})

		It("rejects duplicate ids and slugs", func() {
			Expect(s.Create(ctx, newServer("id-1", "Alpha", 24560))).To(Succeed())
			Expect(s.Create(ctx, newServer("id-1", "Other", 24563))).To(MatchError(ErrDuplicate))
			Expect(s.Create(ctx, newServer("id-2", "Alpha", 24563))).To(MatchError(ErrDuplicate))
		})

		It("updates records atomically in place", func() {
			srv := newServer("id-1", "Alpha", 24560)
			Expect(s.Create(ctx, srv)).To(Succeed())
			srv.DesiredState = DesiredRunning
			srv.ContainerRef = "cafecafe"
			srv.UpdatedAt = srv.UpdatedAt.Add(time.Second)
			Expect(s.Update(ctx, srv)).To(Succeed())
			Expect(s.Get(ctx, "id-1")).To(Equal(srv))
		})

		It("lists records oldest first", func() {
			a := newServer("id-1", "Alpha", 24560)
			b := newServer("id-2", "Beta", 24563)
			b.CreatedAt = a.CreatedAt.Add(time.Second)
			Expect(s.Create(ctx, a)).To(Succeed())
			Expect(s.Create(ctx, b)).To(Succeed())
			servers := Successful(s.List(ctx))
			Expect(servers).To(HaveLen(2))
			Expect(servers[0].ID).To(Equal("id-1"))
			Expect(servers[1].ID).To(Equal("id-2"))
		})

		It("deletes records terminally", func() {
			Expect(s.Create(ctx, newServer("id-1", "Alpha", 24560))).To(Succeed())
			Expect(s.Delete(ctx, "id-1")).To(Succeed())
			Expect(s.Get(ctx, "id-1")).Error().To(MatchError(ErrNotFound))
			Expect(s.Delete(ctx, "id-1")).To(MatchError(ErrNotFound))
		})

	})
}

var _ = describeStore("in-memory", func() Store {
	return NewMemory()
})

var _ = describeStore("SQLite", func() Store {
	s := Successful(OpenSQLite(filepath.Join(GinkgoT().TempDir(), "servers.db")))
	DeferCleanup(func() { Expect(s.Close()).To(Succeed()) })
	return s
})
