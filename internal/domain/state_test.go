package domain_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/prsync/internal/domain"
)

var _ = Describe("Decide", func() {
	DescribeTable("maps pull request status to a canonical state",
		func(status domain.PullRequestStatus, want domain.State) {
			got, ok := domain.Decide(status)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(want))
		},
		Entry("abandoned", domain.PullRequestAbandoned, domain.StateDoing),
		Entry("completed", domain.PullRequestCompleted, domain.StateDone),
		Entry("active", domain.PullRequestActive, domain.StateCodeReview),
	)

	DescribeTable("returns no state for anything else",
		func(status domain.PullRequestStatus) {
			got, ok := domain.Decide(status)
			Expect(ok).To(BeFalse())
			Expect(got).To(BeEmpty())
		},
		Entry("empty", domain.PullRequestStatus("")),
		Entry("notSet", domain.PullRequestStatus("notSet")),
		Entry("all", domain.PullRequestStatus("all")),
		Entry("wrong case", domain.PullRequestStatus("Active")),
	)
})

var _ = Describe("CanTransition", func() {
	DescribeTable("legality table",
		func(current string, to domain.State, want bool) {
			Expect(domain.CanTransition(current, to)).To(Equal(want))
		},
		Entry("Doing → CodeReview", "Doing", domain.StateCodeReview, true),
		Entry("CodeReview → Doing", "CodeReview", domain.StateDoing, true),
		Entry("CodeReview → Done", "CodeReview", domain.StateDone, true),
		Entry("Doing → Done", "Doing", domain.StateDone, false),
		Entry("Doing → Doing", "Doing", domain.StateDoing, false),
		Entry("CodeReview → CodeReview", "CodeReview", domain.StateCodeReview, false),
		Entry("Done → Doing", "Done", domain.StateDoing, false),
		Entry("Done → CodeReview", "Done", domain.StateCodeReview, false),
		Entry("To Do → CodeReview", "To Do", domain.StateCodeReview, false),
		Entry("New → Doing", "New", domain.StateDoing, false),
		Entry("empty current", "", domain.StateDoing, false),
		Entry("CodeReview → Closed", "CodeReview", domain.State(domain.StateClosed), false),
		Entry("CodeReview → Resolved", "CodeReview", domain.State(domain.StateResolved), false),
	)

	It("treats Done as terminal", func() {
		Expect(domain.StateDone.IsTerminal()).To(BeTrue())
		Expect(domain.Successors(domain.StateDone)).To(BeEmpty())
		Expect(domain.StateDoing.IsTerminal()).To(BeFalse())
	})

	It("lists successors in canonical order", func() {
		Expect(domain.Successors(domain.StateCodeReview)).To(Equal([]domain.State{domain.StateDoing, domain.StateDone}))
		Expect(domain.Successors(domain.StateDoing)).To(Equal([]domain.State{domain.StateCodeReview}))
	})
})

var _ = Describe("ParseState", func() {
	It("accepts only canonical names", func() {
		s, ok := domain.ParseState("CodeReview")
		Expect(ok).To(BeTrue())
		Expect(s).To(Equal(domain.StateCodeReview))

		_, ok = domain.ParseState("Closed")
		Expect(ok).To(BeFalse())
	})
})
