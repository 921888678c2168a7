package search_test

import (
	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/search"
)

var _ = Describe("suggestion index", func() {
	var idx *me.Index

	BeforeEach(func() {
		idx = Must(me.NewMemIndex())
		MustBeSuccessful(idx.Index(models.ObjectLight{ID: "1", Name: "Router-Berlin", ClassName: "Router"}))
		MustBeSuccessful(idx.Index(models.ObjectLight{ID: "2", Name: "Berlin", ClassName: "City"}))
		MustBeSuccessful(idx.Index(models.ObjectLight{ID: "3", Name: "Hamburg", ClassName: "City"}))
	})

	AfterEach(func() {
		MustBeSuccessful(idx.Close())
	})

	It("finds substrings ignoring case", func() {
		res := Must(idx.Suggest("berl", 0))
		Expect(res).To(Equal([]models.ObjectLight{
			{ID: "2", Name: "Berlin", ClassName: "City"},
			{ID: "1", Name: "Router-Berlin", ClassName: "Router"},
		}))
		Expect(Must(idx.Suggest("berl", 1))).To(HaveLen(1))
	})

	It("follows renames and removals", func() {
		MustBeSuccessful(idx.Index(models.ObjectLight{ID: "3", Name: "Munich", ClassName: "City"}))
		Expect(Must(idx.Suggest("hamb", 0))).To(BeEmpty())
		MustBeSuccessful(idx.Remove("2"))
		MustBeSuccessful(idx.Remove("unknown"))
		Expect(Must(idx.Suggest("berlin", 0))).To(ConsistOf(models.ObjectLight{ID: "1", Name: "Router-Berlin", ClassName: "Router"}))
		Expect(idx.Count()).To(Equal(2))
	})
})
