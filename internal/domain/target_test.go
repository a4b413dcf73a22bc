package domain_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/prsync/internal/domain"
)

var _ = Describe("ResolveTarget", func() {
	It("returns the desired state when the type allows it", func() {
		target, ok := domain.ResolveTarget(domain.StateCodeReview, []string{"To Do", "Doing", "CodeReview", "Done"})
		Expect(ok).To(BeTrue())
		Expect(target).To(Equal(domain.Target{State: "CodeReview", Canonical: domain.StateCodeReview}))
	})

	It("degrades CodeReview to Doing when the type has no review state", func() {
		target, ok := domain.ResolveTarget(domain.StateCodeReview, []string{"To Do", "Doing", "Done"})
		Expect(ok).To(BeTrue())
		Expect(target).To(Equal(domain.Target{State: "Doing", Canonical: domain.StateDoing}))
	})

	DescribeTable("searches Done fallbacks in priority order",
		func(allowed []string, want string) {
			target, ok := domain.ResolveTarget(domain.StateDone, allowed)
			Expect(ok).To(BeTrue())
			Expect(target.State).To(Equal(want))
			Expect(target.Canonical).To(Equal(domain.StateDone))
		},
		Entry("Done first", []string{"Resolved", "Closed", "Done"}, "Done"),
		Entry("Closed before Resolved", []string{"Resolved", "Closed"}, "Closed"),
		Entry("Resolved last", []string{"New", "Active", "Resolved"}, "Resolved"),
	)

	It("finds nothing when no candidate is allowed", func() {
		_, ok := domain.ResolveTarget(domain.StateDone, []string{"New", "Active", "Removed"})
		Expect(ok).To(BeFalse())

		_, ok = domain.ResolveTarget(domain.StateDoing, []string{"New", "Active"})
		Expect(ok).To(BeFalse())

		_, ok = domain.ResolveTarget(domain.StateCodeReview, nil)
		Expect(ok).To(BeFalse())
	})

	It("matches state names exactly", func() {
		_, ok := domain.ResolveTarget(domain.StateDone, []string{"done", "closed"})
		Expect(ok).To(BeFalse())
	})

	It("exposes the fallback order as a copy", func() {
		list := domain.Candidates(domain.StateDone)
		Expect(list).To(HaveLen(3))
		Expect(list[0].Name).To(Equal("Done"))
		Expect(list[1].Name).To(Equal("Closed"))
		Expect(list[2].Name).To(Equal("Resolved"))

		list[0].Name = "mutated"
		Expect(domain.Candidates(domain.StateDone)[0].Name).To(Equal("Done"))
	})
})
