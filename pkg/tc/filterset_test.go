package tc_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc"
	tctypes "github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc/types"
)

func u32Filter(prio uint16, dport uint16, flowMinor uint16) tctypes.Filter {
	return tctypes.NewU32FilterBuilder().
		WithParent(tctypes.NewHandle(1, 0)).
		WithPriority(prio).
		WithDstPort(dport).
		WithFlowID(tctypes.NewHandle(1, flowMinor)).
		Build()
}

func cgroupFilter(prio uint16, handleMajor uint16) tctypes.Filter {
	return tctypes.NewCgroupFilterBuilder().
		WithParent(tctypes.NewHandle(1, 0)).
		WithPriority(prio).
		WithHandle(tctypes.NewHandle(handleMajor, 0)).
		Build()
}

var _ = Describe("FilterSetImpl tests", func() {
	var filterSet tc.FilterSet

	BeforeEach(func() {
		filterSet = tc.NewFilterSetImpl()
	})

	Context("FilterSet.Add()", func() {
		It("Adds filter to FilterSet", func() {
			filters := []tctypes.Filter{
				u32Filter(5, 8080, 10),
				cgroupFilter(8, 8),
			}
			for i := range filters {
				filterSet.Add(filters[i])
			}

			filterList := filterSet.List()
			Expect(filterList).To(HaveLen(2))
			Expect(filterList).To(ContainElements(filters))
		})

		It("Builds a set from given filters with NewFilterSetOf", func() {
			filters := []tctypes.Filter{
				u32Filter(5, 8080, 10),
				cgroupFilter(8, 8),
				u32Filter(5, 8080, 10),
			}

			fs := tc.NewFilterSetOf(filters...)

			Expect(fs.Len()).To(Equal(2))
			Expect(fs.Has(filters[0])).To(BeTrue())
			Expect(fs.Has(filters[1])).To(BeTrue())
		})

		It("Does not add an already existing filter to FilterSet", func() {
			filter := u32Filter(5, 8080, 10)

			filterSet.Add(filter)
			filterSet.Add(u32Filter(5, 8080, 10))

			filterList := filterSet.List()
			Expect(filterList).To(HaveLen(1))
			Expect(filterList).To(ContainElement(filter))
		})
	})

	Context("FilterSet.Remove()", func() {
		It("removes filter from set if exists", func() {
			filter := u32Filter(5, 8080, 10)
			filterSet.Add(filter)
			Expect(filterSet.Len()).To(Equal(1))
			filterSet.Remove(filter)
			Expect(filterSet.Len()).To(Equal(0))
		})

		It("does not remove filter from set if does not exist", func() {
			filterToAdd := u32Filter(5, 8080, 10)
			filterToRemove := u32Filter(5, 9090, 10)
			filterSet.Add(filterToAdd)
			Expect(filterSet.Len()).To(Equal(1))
			filterSet.Remove(filterToRemove)
			Expect(filterSet.Len()).To(Equal(1))
			Expect(filterSet.List()).To(ContainElement(filterToAdd))
		})
	})

	Context("FilterSet.Has()", func() {
		var filter tctypes.Filter

		BeforeEach(func() {
			filter = u32Filter(5, 8080, 10)
			filterSet.Add(filter)
		})

		It("returns true if Filter in set", func() {
			Expect(filterSet.Has(filter)).To(BeTrue())
		})

		It("returns true for an equal Filter built separately", func() {
			Expect(filterSet.Has(u32Filter(5, 8080, 10))).To(BeTrue())
		})

		It("returns false if Filter not in set", func() {
			Expect(filterSet.Has(u32Filter(5, 8080, 20))).To(BeFalse())
		})

		It("returns false for a different kind at the same priority", func() {
			Expect(filterSet.Has(cgroupFilter(5, 8))).To(BeFalse())
		})
	})

	Context("FilterSet.Len()", func() {
		It("returns zero if no Filters", func() {
			Expect(filterSet.Len()).To(BeZero())
		})

		It("returns number of filters in set", func() {
			filterSet.Add(u32Filter(5, 8080, 10))
			filterSet.Add(cgroupFilter(8, 8))
			Expect(filterSet.Len()).To(Equal(2))
		})
	})

	Context("FilterSet.In()", func() {
		var this tc.FilterSet
		var other tc.FilterSet
		filters := []tctypes.Filter{
			u32Filter(5, 8080, 10),
			u32Filter(6, 9090, 20),
			cgroupFilter(8, 8),
		}

		BeforeEach(func() {
			this = filterSet
			other = tc.NewFilterSetImpl()
		})

		It("returns true if this set in other", func() {
			for i := range filters {
				other.Add(filters[i])
			}
			for i := 0; i < len(filters)-1; i++ {
				this.Add(filters[i])
			}
			Expect(this.In(other)).To(BeTrue())
		})

		It("returns true if sets are equal", func() {
			for i := range filters {
				this.Add(filters[i])
				other.Add(filters[i])
			}
			Expect(this.In(other)).To(BeTrue())
		})

		It("returns true if both sets empty", func() {
			Expect(this.In(other)).To(BeTrue())
		})

		It("returns true if this set is empty", func() {
			other.Add(filters[0])
			Expect(this.In(other)).To(BeTrue())
		})

		It("returns false if this set not in other, completely disjoint", func() {
			this.Add(filters[0])
			other.Add(filters[1])
			Expect(this.In(other)).To(BeFalse())
		})

		It("returns false if this set not in other, partially disjoint", func() {
			for i := range filters {
				this.Add(filters[i])
			}
			for i := 0; i < len(filters)-1; i++ {
				other.Add(filters[i])
			}
			Expect(this.In(other)).To(BeFalse())
		})

		It("returns false if other is empty but this is not", func() {
			for i := 0; i < len(filters); i++ {
				this.Add(filters[i])
			}
			Expect(this.In(other)).To(BeFalse())
		})
	})

	Context("FilterSet.Intersect()", func() {
		var this tc.FilterSet
		var other tc.FilterSet
		filters := []tctypes.Filter{
			u32Filter(5, 8080, 10),
			u32Filter(6, 9090, 20),
			cgroupFilter(8, 8),
			cgroupFilter(9, 0xa4),
		}

		BeforeEach(func() {
			this = filterSet
			other = tc.NewFilterSetImpl()
		})

		It("returns this if this is in other", func() {
			for i := range filters {
				other.Add(filters[i])
			}
			for i := 0; i < len(filters)-1; i++ {
				this.Add(filters[i])
			}
			common := this.Intersect(other)
			Expect(common.Len()).To(Equal(len(filters) - 1))
			Expect(common.Equals(this)).To(BeTrue())
		})

		It("returns filter set with common items from this and other", func() {
			this.Add(filters[0])
			this.Add(filters[1])
			this.Add(filters[2])
			other.Add(filters[1])
			other.Add(filters[2])
			other.Add(filters[3])

			common := this.Intersect(other)
			Expect(common.Len()).To(Equal(2))
			Expect(common.Has(filters[1])).To(BeTrue())
			Expect(common.Has(filters[2])).To(BeTrue())
		})

		It("returns empty filter set if this and other are disjoint", func() {
			this.Add(filters[0])
			this.Add(filters[1])
			other.Add(filters[2])
			other.Add(filters[3])

			common := this.Intersect(other)
			Expect(common.Len()).To(BeZero())
		})

		It("returns empty filter set if this is empty", func() {
			for i := range filters {
				other.Add(filters[i])
			}

			common := this.Intersect(other)
			Expect(common.Len()).To(BeZero())
		})

		It("returns empty filter set if other is empty", func() {
			for i := range filters {
				this.Add(filters[i])
			}

			common := this.Intersect(other)
			Expect(common.Len()).To(BeZero())
		})
	})

	Context("FilterSet.Difference()", func() {
		var this tc.FilterSet
		var other tc.FilterSet
		filters := []tctypes.Filter{
			u32Filter(5, 8080, 10),
			u32Filter(6, 9090, 20),
			cgroupFilter(8, 8),
			cgroupFilter(9, 0xa4),
		}

		BeforeEach(func() {
			this = filterSet
			other = tc.NewFilterSetImpl()
		})

		It("returns set with filters that this filter has and not in other", func() {
			for i := range filters {
				this.Add(filters[i])
			}
			other.Add(filters[0])
			other.Add(filters[1])

			diff := this.Difference(other)

			expected := tc.NewFilterSetImpl()
			expected.Add(filters[2])
			expected.Add(filters[3])

			Expect(diff.Equals(expected)).To(BeTrue())
		})

		It("returns empty set if this and other sets are equal", func() {
			for i := range filters {
				this.Add(filters[i])
				other.Add(filters[i])
			}

			diff := this.Difference(other)
			Expect(diff.Len()).To(BeZero())
		})

		It("returns empty set if this in other", func() {
			for i := range filters {
				if i%2 == 0 {
					this.Add(filters[i])
				}
				other.Add(filters[i])
			}

			diff := this.Difference(other)
			Expect(diff.Len()).To(BeZero())
		})

		It("returns empty set if this is empty", func() {
			for i := range filters {
				other.Add(filters[i])
			}

			Expect(this.Difference(other).Len()).To(BeZero())
		})

		It("returns this if other is empty", func() {
			for i := range filters {
				this.Add(filters[i])
			}

			diff := this.Difference(other)
			Expect(diff.Equals(this)).To(BeTrue())
		})
	})

	Context("FilterSet.Equals()", func() {
		var this tc.FilterSet
		var other tc.FilterSet
		filters := []tctypes.Filter{
			u32Filter(5, 8080, 10),
			u32Filter(6, 9090, 20),
			cgroupFilter(8, 8),
		}

		BeforeEach(func() {
			this = filterSet
			other = tc.NewFilterSetImpl()
		})

		It("returns true if both sets are empty", func() {
			Expect(this.Equals(other)).To(BeTrue())
		})

		It("returns true if both sets have the same filters", func() {
			for i := range filters {
				this.Add(filters[i])
				other.Add(filters[i])
			}

			Expect(this.Equals(other)).To(BeTrue())
		})

		It("returns false if sets have different number of filters", func() {
			for i := range filters {
				if i%2 == 0 {
					this.Add(filters[i])
				}
				other.Add(filters[i])
			}

			Expect(this.Equals(other)).To(BeFalse())
		})

		It("returns false if sets have different filters but same number of elements", func() {
			this.Add(filters[0])
			this.Add(filters[1])
			other.Add(filters[1])
			other.Add(filters[2])

			Expect(this.Equals(other)).To(BeFalse())
		})
	})

	Context("FilterSet.List()", func() {
		It("returns empty list for empty set", func() {
			Expect(filterSet.List()).To(BeEmpty())
		})

		It("returns the filters in set", func() {
			filterSet.Add(u32Filter(5, 8080, 10))
			filterSet.Add(cgroupFilter(8, 8))

			Expect(filterSet.List()).To(HaveLen(2))
		})
	})
})
