// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"

	"github.com/siemens/valpanel/config"
)

var _ = Describe("panel configuration", func() {

	It("serves the classic defaults without any file", func() {
		cfg := Successful(config.Load(""))
		Expect(cfg.Ports.Start).To(Equal(24560))
		Expect(cfg.Ports.End).To(Equal(24660))
		Expect(cfg.Ports.BlockSize).To(Equal(3))
		Expect(cfg.Docker.Driver).To(Equal("docker"))
		Expect(cfg.Docker.Image).To(Equal("lloesche/valheim-server"))
		Expect(cfg.PortRange().Validate()).To(Succeed())
	})

	It("loads a TOML file on top of the defaults", func() {
		path := filepath.Join(GinkgoT().TempDir(), "valpanel.toml")
		Expect(os.WriteFile(path, []byte(`
[ports]
start = 1000
end = 1008
block_size = 3
quarantine = "5s"

[docker]
host = "unix:///run/user/1000/docker.sock"

[sweep]
interval = "1m"
workers = 4
`), 0o644)).To(Succeed())

		cfg := Successful(config.Load(path))
		Expect(cfg.Ports.Start).To(Equal(1000))
		Expect(cfg.Ports.Quarantine).To(Equal(config.Duration(5 * time.Second)))
		Expect(cfg.Docker.Host).To(Equal("unix:///run/user/1000/docker.sock"))
		Expect(cfg.Docker.Image).To(Equal("lloesche/valheim-server"), "untouched defaults must survive")
		Expect(cfg.Sweep.Interval).To(Equal(config.Duration(time.Minute)))
		Expect(cfg.Sweep.Workers).To(Equal(4))
	})

	It("rejects unknown configuration keys", func() {
		path := filepath.Join(GinkgoT().TempDir(), "valpanel.toml")
		Expect(os.WriteFile(path, []byte("[ports]\nstrat = 1000\n"), 0o644)).To(Succeed())
		Expect(config.Load(path)).Error().To(MatchError(ContainSubstring("strat")))
	})

	It("rejects a port range too small for even one block", func() {
		path := filepath.Join(GinkgoT().TempDir(), "valpanel.toml")
		Expect(os.WriteFile(path, []byte("[ports]\nstart = 1000\nend = 1001\n"), 0o644)).To(Succeed())
		Expect(config.Load(path)).Error().To(HaveOccurred())
	})

	It("lets the environment override file and defaults", func() {
		GinkgoT().Setenv(config.EnvImage, "example.org/valheim:canary")
		GinkgoT().Setenv(config.EnvPortRangeStart, "30000")
		GinkgoT().Setenv(config.EnvPortRangeEnd, "30090")
		GinkgoT().Setenv(config.EnvSweepInterval, "45s")

		cfg := Successful(config.Load(""))
		Expect(cfg.Docker.Image).To(Equal("example.org/valheim:canary"))
		Expect(cfg.Ports.Start).To(Equal(30000))
		Expect(cfg.Sweep.Interval).To(Equal(config.Duration(45 * time.Second)))
	})

	It("reports unparseable environment overrides", func() {
		GinkgoT().Setenv(config.EnvPortBlockSize, "three")
		Expect(config.Load("")).Error().To(MatchError(ContainSubstring(config.EnvPortBlockSize)))
	})

})
