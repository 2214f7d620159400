// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package valpanel

import (
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("per-server serialization", func() {

	It("serializes holders of the same key", func() {
		s := newSerializer()
		var inside atomic.Int32
		var tainted atomic.Bool
		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := s.lock("alpha")
				defer unlock()
				if inside.Add(1) != 1 {
					tainted.Store(true)
				}
				inside.Add(-1)
			}()
		}
		wg.Wait()
		Expect(tainted.Load()).To(BeFalse(), "holders of the same key must never overlap")
	})

	It("lets holders of different keys proceed in parallel", func() {
		s := newSerializer()
		unlockAlpha := s.lock("alpha")
		done := make(chan struct{})
		go func() {
			defer close(done)
			unlock := s.lock("beta")
			unlock()
		}()
		Eventually(done).Should(BeClosed(), "a held foreign key must not block")
		unlockAlpha()
	})

	It("drops idle locks again", func() {
		s := newSerializer()
		unlock := s.lock("alpha")
		unlock()
		s.mu.Lock()
		defer s.mu.Unlock()
		Expect(s.locks).To(BeEmpty())
	})

})
