// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package worldfs

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

var _ = Describe("world directory manager", func() {

	var mgr *Manager

	BeforeEach(func() {
		mgr = Successful(NewManager(GinkgoT().TempDir()))
	})

	It("refuses an empty data root", func() {
		Expect(NewManager("")).Error().To(HaveOccurred())
	})

	It("creates the three world directories of a server", func() {
		paths := Successful(mgr.Ensure("alpha"))
		Expect(paths.Config).To(Equal(filepath.Join(mgr.Root(), "alpha", "config")))
		Expect(paths.Save).To(Equal(filepath.Join(mgr.Root(), "alpha", "server")))
		Expect(paths.Backup).To(Equal(filepath.Join(mgr.Root(), "alpha", "backups")))
		for _, d := range []string{paths.Config, paths.Save, paths.Backup} {
			Expect(d).To(BeADirectory())
		}
	})

	It("keeps existing contents when ensuring again", func() {
		paths := Successful(mgr.Ensure("alpha"))
		canary := filepath.Join(paths.Save, "world.db")
		Expect(os.WriteFile(canary, []byte("precious"), 0o644)).To(Succeed())

		again := Successful(mgr.Ensure("alpha"))
		Expect(again).To(Equal(paths))
		Expect(canary).To(BeARegularFile())
	})

	It("purges a server's world directories and is idempotent about it", func() {
		paths := Successful(mgr.Ensure("alpha"))
		Expect(mgr.Purge("alpha")).To(Succeed())
		Expect(paths.Config).NotTo(BeADirectory())
		Expect(filepath.Join(mgr.Root(), "alpha")).NotTo(BeADirectory())
		Expect(mgr.Purge("alpha")).To(Succeed(), "purging twice must not error")
	})

	It("confines slugs to the data root", func() {
		outside := filepath.Join(filepath.Dir(mgr.Root()), "victim")
		Expect(os.MkdirAll(outside, 0o755)).To(Succeed())

		paths := Successful(mgr.Ensure("../victim"))
		Expect(paths.Config).To(HavePrefix(mgr.Root()))
		Expect(mgr.Purge("../victim")).To(Succeed())
		Expect(outside).To(BeADirectory(), "must never reach outside the root")
	})

	It("never lets a slug alias the data root itself", func() {
		Expect(mgr.Ensure("")).Error().To(HaveOccurred())
		Expect(mgr.Purge(".")).NotTo(Succeed())
		Expect(mgr.Root()).To(BeADirectory())
	})

})
