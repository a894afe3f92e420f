package s3xfer

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("transferPlan", func() {
	It("should derive the chunk size as the ceiling of total over parts", func() {
		plan := newTransferPlan(38_000_007, 3, 2)
		Expect(plan.chunkSize).To(Equal(int64((38_000_007 + 5) / 6)))
		Expect(plan.numParts()).To(Equal(6))
	})

	It("should cover the byte range exactly once", func() {
		for _, tc := range []struct {
			total       int64
			jobs, parts int
		}{
			{38_000_007, 3, 2},
			{19_000_000, 1, 3},
			{1, 1, 1},
			{100, 7, 3},
			{1000, 4, 1},
		} {
			plan := newTransferPlan(tc.total, tc.jobs, tc.parts)
			var covered int64
			expectedNumber := 1
			for _, s := range plan.slices() {
				var jobBytes int64
				for _, p := range s.parts() {
					Expect(p.number).To(Equal(expectedNumber))
					Expect(p.begin).To(Equal(covered))
					Expect(p.size).To(BeNumerically(">", 0))
					covered += p.size
					jobBytes += p.size
					expectedNumber++
				}
				Expect(jobBytes).To(Equal(s.size))
				// jobs may own fewer parts than planned on small inputs, but
				// numbering restarts at the job's slot so manifests ascend
				expectedNumber = s.firstPart + plan.partsPerJob
			}
			Expect(covered).To(Equal(tc.total))
		}
	})

	It("should assign disjoint ascending part numbers across jobs", func() {
		plan := newTransferPlan(38_000_007, 3, 2)
		seen := map[int]bool{}
		last := 0
		for _, s := range plan.slices() {
			for _, p := range s.parts() {
				Expect(p.number).To(BeNumerically(">", last))
				Expect(seen).ToNot(HaveKey(p.number))
				seen[p.number] = true
				last = p.number
			}
		}
		Expect(seen).To(HaveLen(6))
	})

	It("should flag single-part transfers only for one job", func() {
		Expect(newTransferPlan(100, 1, 1).singlePart()).To(BeTrue())
		Expect(newTransferPlan(100, 1, 2).singlePart()).To(BeFalse())
		Expect(newTransferPlan(100, 2, 1).singlePart()).To(BeFalse())
	})

	It("should leave no empty trailing jobs", func() {
		// 10 bytes over 4 jobs × 3 parts: chunk size 1, job bytes 3
		plan := newTransferPlan(10, 4, 3)
		slices := plan.slices()
		Expect(len(slices)).To(BeNumerically("<=", 4))
		var covered int64
		for _, s := range slices {
			Expect(s.size).To(BeNumerically(">", 0))
			covered += s.size
		}
		Expect(covered).To(Equal(int64(10)))
	})
})
