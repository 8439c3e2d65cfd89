package monitoring

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ProgressBar", func() {
	It("should move items from in progress to finished", func() {
		bar := &ProgressBar{Total: 10}

		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)
		bar.IncrementFinished(1)

		info := bar.Info()
		Expect(info.InProgress).To(Equal(uint64(1)))
		Expect(info.Finished).To(Equal(uint64(3)))
		Expect(info.Total).To(Equal(uint64(10)))
	})
})
