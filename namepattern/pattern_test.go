package namepattern_test

import (
	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/namepattern"
)

var _ = Describe("name patterns", func() {
	It("expands numeric sequences", func() {
		p := Must(me.Parse("port-[sequence(1,3)]"))
		Expect(p.Names()).To(Equal([]string{"port-1", "port-2", "port-3"}))
		Expect(Must(me.Parse("[sequence(3,1)]")).Names()).To(Equal([]string{"3", "2", "1"}))
	})

	It("expands letter sequences and lists", func() {
		Expect(Must(me.Parse("slot[sequence(a,c)]")).Names()).To(Equal([]string{"slota", "slotb", "slotc"}))
		Expect(Must(me.Parse("[list(fe, ge)]0")).Names()).To(Equal([]string{"fe0", "ge0"}))
	})

	It("builds the cartesian product in order", func() {
		p := Must(me.Parse("s[sequence(1,2)]/p[sequence(1,2)]"))
		Expect(p.Count()).To(Equal(4))
		Expect(p.Names()).To(Equal([]string{"s1/p1", "s1/p2", "s2/p1", "s2/p2"}))
	})

	It("keeps plain names", func() {
		Expect(Must(me.Parse("router")).Names()).To(Equal([]string{"router"}))
	})

	It("generates mirror pairs", func() {
		p := Must(me.Parse("[mirror(1,2)]"))
		Expect(p.IsMirror()).To(BeTrue())
		names := p.Names()
		Expect(names).To(Equal([]string{"1-front", "1-back", "2-front", "2-back"}))
		Expect(me.MirrorPairs(names)).To(Equal([][2]int{{0, 1}, {2, 3}}))
	})

	It("rejects requests exceeding the pattern", func() {
		_, _, err := me.Generate("p[sequence(1,3)]", 4)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		names, _ := Must2(me.Generate("p[sequence(1,3)]", 2))
		Expect(names).To(Equal([]string{"p1", "p2"}))
	})

	It("counts distinct names only", func() {
		p := Must(me.Parse("[list(a,ab)][list(bc,c)]"))
		Expect(p.Names()).To(Equal([]string{"abc", "ac", "abbc"}))
		Expect(p.Count()).To(Equal(3))
		_, _, err := me.Generate("[list(a,ab)][list(bc,c)]", 4)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
	})

	It("rejects bounds far apart", func() {
		for _, p := range []string{
			"p[sequence(-9000000000000000000,9000000000000000000)]",
			"p[sequence(-2000000000,2000000000)]",
			"p[mirror(0,9000000000000000000)]",
			"p[sequence(1,200000)]",
		} {
			_, _, err := me.Generate(p, 2)
			Expect(errs.IsInvalidArgument(err)).To(BeTrue(), p)
		}
	})

	It("rejects malformed patterns", func() {
		for _, p := range []string{"", "[sequence(1)]", "[sequence(a,10)]", "x[unknown(1,2)]", "[mirror(1,2)][mirror(1,2)]", "[list(a,,b)]", "p[list(a,a)]"} {
			_, err := me.Parse(p)
			Expect(errs.IsInvalidArgument(err)).To(BeTrue(), p)
		}
	})
})
