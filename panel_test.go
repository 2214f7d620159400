// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package valpanel

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/siemens/valpanel/driver"
	"github.com/siemens/valpanel/internal/fake"
	"github.com/siemens/valpanel/internal/test"
	"github.com/siemens/valpanel/matcher"
	"github.com/siemens/valpanel/portpool"
	"github.com/siemens/valpanel/store"
	"github.com/siemens/valpanel/worldfs"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/onsi/gomega/gleak"
	. "github.com/thediveo/success"
)

// Three blocks: 1000, 1003, 1006.
var testRange = portpool.Range{Start: 1000, End: 1008, BlockSize: 3}

const testImage = "example.org/valheim:test"

var _ = Describe("panel", func() {

	var ctx context.Context
	var records *store.Memory
	var daemon *fake.Driver
	var worlds *worldfs.Manager
	var panel *Panel

	BeforeEach(func() {
		goodgos := Goroutines()
		DeferCleanup(func() {
			Eventually(Goroutines).WithTimeout(goroutinesUnwindTimeout).WithPolling(goroutinesUnwindPolling).
				ShouldNot(HaveLeaked(goodgos))
		})

		ctx = context.Background()
		records = store.NewMemory()
		daemon = fake.NewDriver()
		worlds = Successful(worldfs.NewManager(GinkgoT().TempDir()))
		panel = Successful(New(ctx, records, daemon, worlds, testRange, testImage,
			WithLogger(test.Logger()),
			WithDriverTimeout(2*time.Second)))
	})

	When("creating servers", func() {

		It("provisions block, directories, container, and record", func() {
			srv := Successful(panel.Create(ctx, "Midgard Mondays", "midgard", "sekrit"))
			Expect(srv.Slug).To(Equal("midgard-mondays"))
			Expect(srv.BasePort).To(Equal(1000), "first server gets the lowest block")
			Expect(srv.DesiredState).To(Equal(store.DesiredStopped))
			Expect(srv.ContainerRef).NotTo(BeEmpty())

			Expect(records.Get(ctx, srv.ID)).To(Equal(srv))
			cntr, ok := daemon.BySlug("midgard-mondays")
			Expect(ok).To(BeTrue())
			Expect(cntr.State).To(Equal(driver.StateCreated))
			Expect(cntr.Spec.Image).To(Equal(testImage))
			Expect(cntr.Spec.Ports).To(Equal(portpool.Block{Base: 1000, Size: 3}))
			Expect(filepath.Join(worlds.Root(), "midgard-mondays", "config")).To(BeADirectory())
		})

		It("rejects a name mapping to a taken slug", func() {
			Successful(panel.Create(ctx, "Alpha", "midgard", "sekrit"))
			Expect(panel.Create(ctx, "alpha!", "other", "sekrit")).Error().
				To(MatchError(ErrSlugInUse))
		})

		It("defaults an empty world name to the slug", func() {
			srv := Successful(panel.Create(ctx, "Midgard Mondays", "", "sekrit"))
			Expect(srv.WorldName).To(Equal("midgard-mondays"))
			cntr, ok := daemon.BySlug("midgard-mondays")
			Expect(ok).To(BeTrue())
			Expect(cntr.Spec.WorldName).To(Equal("midgard-mondays"))
		})

		It("lets exactly one of several concurrent same-name creates win", func() {
			const racers = 8
			var wg sync.WaitGroup
			servers := make([]store.Server, racers)
			results := make([]error, racers)
			wg.Add(racers)
			for i := 0; i < racers; i++ {
				go func(i int) {
					defer wg.Done()
					servers[i], results[i] = panel.Create(ctx, "Alpha", "midgard", "sekrit")
				}(i)
			}
			wg.Wait()

			var winner store.Server
			wins := 0
			for i, err := range results {
				if err == nil {
					winner = servers[i]
					wins++
					continue
				}
				Expect(err).To(MatchError(ErrSlugInUse))
			}
			Expect(wins).To(Equal(1))
			// No loser's rollback may have torn down what the winner owns.
			Expect(daemon.Count()).To(Equal(1))
			cntr, ok := daemon.Get(winner.ContainerRef)
			Expect(ok).To(BeTrue(), "the winner's container reference must not dangle")
			Expect(cntr.Spec.Slug).To(Equal("alpha"))
			Expect(filepath.Join(worlds.Root(), "alpha", "config")).To(BeADirectory())
			Expect(panel.PortsFree()).To(Equal(2))
		})

		It("runs out of capacity after three servers and recovers on delete", func() {
			Successful(panel.Create(ctx, "one", "w", "p"))
			two := Successful(panel.Create(ctx, "two", "w", "p"))
			Successful(panel.Create(ctx, "three", "w", "p"))
			Expect(panel.PortsFree()).To(BeZero())
			Expect(panel.Create(ctx, "four", "w", "p")).Error().
				To(MatchError(ErrCapacityExhausted))

			Expect(panel.Delete(ctx, two.ID)).To(Succeed())
			four := Successful(panel.Create(ctx, "four", "w", "p"))
			Expect(four.BasePort).To(Equal(two.BasePort), "freed block must be reused")
		})

		It("rolls a failed create fully back", func() {
			daemon.FailCreate = errors.New("boom") // daemon says no
			Expect(panel.Create(ctx, "Alpha", "midgard", "sekrit")).Error().To(HaveOccurred())

			Expect(records.GetBySlug(ctx, "alpha")).Error().To(MatchError(store.ErrNotFound))
			Expect(panel.PortsFree()).To(Equal(3), "no orphaned port block")
			Expect(filepath.Join(worlds.Root(), "alpha")).NotTo(BeADirectory(), "no orphaned directories")
			Expect(daemon.Count()).To(BeZero())

			daemon.FailCreate = nil
			srv := Successful(panel.Create(ctx, "Alpha", "midgard", "sekrit"))
			Expect(srv.BasePort).To(Equal(1000), "released block must be allocatable again")
		})

	})

	When("transitioning servers", func() {

		var srv store.Server

		BeforeEach(func() {
			srv = Successful(panel.Create(ctx, "Alpha", "midgard", "sekrit"))
		})

		It("starts, stops, and restarts", func() {
			Expect(panel.Start(ctx, srv.ID)).To(Succeed())
			Expect(records.Get(ctx, srv.ID)).To(HaveField("DesiredState", store.DesiredRunning))
			cntr, _ := daemon.BySlug("alpha")
			Expect(cntr.State).To(Equal(driver.StateRunning))

			Expect(panel.Restart(ctx, srv.ID)).To(Succeed())
			cntr, _ = daemon.BySlug("alpha")
			Expect(cntr.State).To(Equal(driver.StateRunning))

			Expect(panel.Stop(ctx, srv.ID)).To(Succeed())
			Expect(records.Get(ctx, srv.ID)).To(HaveField("DesiredState", store.DesiredStopped))
			cntr, _ = daemon.BySlug("alpha")
			Expect(cntr.State).To(Equal(driver.StateExited))
		})

		It("reports operations on unknown servers", func() {
			Expect(panel.Start(ctx, "bogus")).To(MatchError(ErrNotFound))
			Expect(panel.Stop(ctx, "bogus")).To(MatchError(ErrNotFound))
			Expect(panel.Delete(ctx, "bogus")).To(MatchError(ErrNotFound))
			Expect(panel.Status(ctx, "bogus")).Error().To(MatchError(ErrNotFound))
		})

		It("recreates a vanished container on start, reusing the port block", func() {
			daemon.Lose(srv.ContainerRef) // docker rm -f behind our back

			Expect(panel.Start(ctx, srv.ID)).To(Succeed())
			updated := Successful(records.Get(ctx, srv.ID))
			Expect(updated.ContainerRef).NotTo(Equal(srv.ContainerRef))
			Expect(updated.BasePort).To(Equal(srv.BasePort), "no new allocation on recreate")
			cntr, ok := daemon.BySlug("alpha")
			Expect(ok).To(BeTrue())
			Expect(cntr.State).To(Equal(driver.StateRunning))
			Expect(panel.PortsFree()).To(Equal(2))
		})

		It("recreates a vanished container on stop, without starting it", func() {
			daemon.Lose(srv.ContainerRef)

			Expect(panel.Stop(ctx, srv.ID)).To(Succeed())
			cntr, ok := daemon.BySlug("alpha")
			Expect(ok).To(BeTrue())
			Expect(cntr.State).To(Equal(driver.StateCreated))
			Expect(records.Get(ctx, srv.ID)).To(HaveField("DesiredState", store.DesiredStopped))
		})

		It("reports a server's observed condition", func() {
			status := Successful(panel.Status(ctx, srv.ID))
			Expect(status.Server).To(matcher.HaveServerSlugID("alpha"))
			Expect(status.Observed.State).To(Equal(driver.StateCreated))

			Expect(panel.Start(ctx, srv.ID)).To(Succeed())
			status = Successful(panel.Status(ctx, srv.ID))
			Expect(status.Observed.State).To(Equal(driver.StateRunning))
		})

		It("tails a server's logs", func() {
			daemon.SetLogs(srv.ContainerRef,
				"Game server connected", "World saved")
			Expect(panel.Logs(ctx, srv.ID, 0)).To(ConsistOf(
				"Game server connected", "World saved"))
			Expect(panel.Logs(ctx, srv.ID, 1)).To(ConsistOf("World saved"))
		})

	})

	When("deleting servers", func() {

		It("tears everything down, record last", func() {
			srv := Successful(panel.Create(ctx, "Alpha", "midgard", "sekrit"))
			Expect(panel.Start(ctx, srv.ID)).To(Succeed())

			Expect(panel.Delete(ctx, srv.ID)).To(Succeed())
			Expect(daemon.Count()).To(BeZero())
			Expect(filepath.Join(worlds.Root(), "alpha")).NotTo(BeADirectory())
			Expect(panel.PortsFree()).To(Equal(3))
			Expect(records.Get(ctx, srv.ID)).Error().To(MatchError(store.ErrNotFound))
		})

		It("retries cleanly after a crash between container removal and record deletion", func() {
			srv := Successful(panel.Create(ctx, "Alpha", "midgard", "sekrit"))
			// Simulate the crashed half-done delete: container already gone,
			// record still there.
			daemon.Lose(srv.ContainerRef)

			Expect(panel.Delete(ctx, srv.ID)).To(Succeed())
			Expect(panel.PortsFree()).To(Equal(3))
			Expect(panel.Delete(ctx, srv.ID)).To(MatchError(ErrNotFound), "deletion is terminal")
		})

		It("never asks the daemon to remove a container already observed gone", func() {
			srv := Successful(panel.Create(ctx, "Alpha", "midgard", "sekrit"))
			daemon.Lose(srv.ContainerRef)
			daemon.FailRemove = errors.New("remove must not be called for an absent container")

			Expect(panel.Delete(ctx, srv.ID)).To(Succeed())
			Expect(panel.PortsFree()).To(Equal(3))
		})

		It("resolves concurrent start and delete to exactly one outcome", func() {
			srv := Successful(panel.Create(ctx, "Alpha", "midgard", "sekrit"))

			var wg sync.WaitGroup
			var starterr, deleteerr error
			wg.Add(2)
			go func() {
				defer wg.Done()
				starterr = panel.Start(ctx, srv.ID)
			}()
			go func() {
				defer wg.Done()
				deleteerr = panel.Delete(ctx, srv.ID)
			}()
			wg.Wait()

			Expect(deleteerr).NotTo(HaveOccurred())
			if starterr != nil {
				Expect(starterr).To(MatchError(ErrNotFound), "the loser must see a clean not-found")
			}
			// Whatever the interleaving, nothing may be left behind.
			Expect(records.Get(ctx, srv.ID)).Error().To(MatchError(store.ErrNotFound))
			Expect(daemon.Count()).To(BeZero())
			Expect(panel.PortsFree()).To(Equal(3))
		})

	})

	When("restoring the port pool at startup", func() {

		It("marks recorded blocks as taken before the first allocation", func() {
			srv := Successful(panel.Create(ctx, "Alpha", "midgard", "sekrit"))
			Expect(srv.BasePort).To(Equal(1000))

			reborn := Successful(New(ctx, records, daemon, worlds, testRange, testImage,
				WithLogger(test.Logger())))
			Expect(reborn.PortsFree()).To(Equal(2))
			next := Successful(reborn.Create(ctx, "Beta", "w", "p"))
			Expect(next.BasePort).To(Equal(1003))
		})

		It("grandfathers blocks outside the configured range", func() {
			Expect(records.Create(ctx, store.Server{
				ID: "old", Name: "Old", Slug: "old", BasePort: 24560,
				DesiredState: store.DesiredStopped,
				CreatedAt:    time.Now(), UpdatedAt: time.Now(),
			})).To(Succeed())

			reborn := Successful(New(ctx, records, daemon, worlds, testRange, testImage,
				WithLogger(test.Logger())))
			Expect(reborn.PortsFree()).To(Equal(3), "a foreign block must not eat in-range capacity")
			Expect(reborn.Delete(ctx, "old")).To(Succeed())
			Expect(reborn.PortsFree()).To(Equal(3), "a foreign block must never enter the pool")
		})

	})

	When("sweeping", func() {

		It("converges crashed and vanished should-be-running servers", func() {
			alpha := Successful(panel.Create(ctx, "Alpha", "w", "p"))
			beta := Successful(panel.Create(ctx, "Beta", "w", "p"))
			Expect(panel.Start(ctx, alpha.ID)).To(Succeed())
			Expect(panel.Start(ctx, beta.ID)).To(Succeed())

			alphaRef := Successful(records.Get(ctx, alpha.ID)).ContainerRef
			daemon.Crash(alphaRef, 137)
			betaRef := Successful(records.Get(ctx, beta.ID)).ContainerRef
			daemon.Lose(betaRef)

			panel.ReconcileAll(ctx)

			cntr, _ := daemon.BySlug("alpha")
			Expect(cntr.State).To(Equal(driver.StateRunning))
			cntr, ok := daemon.BySlug("beta")
			Expect(ok).To(BeTrue(), "vanished container must be recreated")
			Expect(cntr.State).To(Equal(driver.StateRunning))
			Expect(cntr.Spec.Ports.Base).To(Equal(beta.BasePort))
		})

		It("stops servers running against their desired state", func() {
			srv := Successful(panel.Create(ctx, "Alpha", "w", "p"))
			// Someone started the container behind the panel's back.
			cntr, _ := daemon.BySlug("alpha")
			Expect(daemon.Start(ctx, cntr.Ref)).To(Succeed())

			panel.ReconcileAll(ctx)

			cntr, _ = daemon.BySlug("alpha")
			Expect(cntr.State).To(Equal(driver.StateExited))
			Expect(records.Get(ctx, srv.ID)).To(HaveField("DesiredState", store.DesiredStopped))
		})

		It("sweeps periodically until told to stop", func() {
			srv := Successful(panel.Create(ctx, "Alpha", "w", "p"))
			Expect(panel.Start(ctx, srv.ID)).To(Succeed())
			quick := Successful(New(ctx, records, daemon, worlds, testRange, testImage,
				WithLogger(test.Logger()),
				WithSweepInterval(10*time.Millisecond)))

			watchctx, cancel := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				defer close(done)
				quick.Watch(watchctx)
			}()

			ref := Successful(records.Get(ctx, srv.ID)).ContainerRef
			daemon.Crash(ref, 137)
			Eventually(func() driver.State {
				cntr, _ := daemon.BySlug("alpha")
				return cntr.State
			}).WithTimeout(2 * time.Second).WithPolling(10 * time.Millisecond).
				Should(Equal(driver.StateRunning))

			cancel()
			Eventually(done).WithTimeout(2 * time.Second).Should(BeClosed())
		})

	})

})
