package application_test

import (
	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/application"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

var _ = Describe("business rules", func() {
	var (
		f      *fixture
		repo   *me.Repository
		cisco  string
		router string
		fast   string
		slow   string
	)

	BeforeEach(func() {
		f = newFixture()
		repo = me.New(f.store, f.catalog, me.WithBusinessRules(true))
		cisco = Must(repo.CreateListTypeItem(f.ctx, "EquipmentVendor", "cisco", ""))
		router = f.create("Router", "", "-1", map[string]string{"name": "r1", "vendor": cisco})
		fast = f.create("Port", "Router", router, map[string]string{"name": "p1", "speed": "10G"})
		slow = f.create("Port", "Router", router, map[string]string{"name": "p2", "speed": "1G"})
	})

	check := func(r *me.Repository, target string) error {
		return graph.View(f.ctx, f.store, func(tx graph.Tx) error {
			return r.CheckRelationshipByAttributeValue(f.ctx, tx, "Router", router, "Port", target)
		})
	}

	It("rejects relationships without rules", func() {
		Expect(errs.IsBusinessRuleViolation(check(repo, slow))).To(BeTrue())
		Expect(errs.IsBusinessRuleViolation(check(repo, fast))).To(BeTrue())
	})

	It("rejects source classes without rules", func() {
		Must(repo.CreateBusinessRule(f.ctx, "port peers", "", me.RuleTypeRelationshipByAttributeValue, me.RuleScopeGlobal,
			"Port", "1.0", "Router", "speed", "vendor"))
		Expect(errs.IsBusinessRuleViolation(check(repo, slow))).To(BeTrue())
	})

	It("rejects targets no rule names", func() {
		Must(repo.CreateBusinessRule(f.ctx, "router peers", "", me.RuleTypeRelationshipByAttributeValue, me.RuleScopeGlobal,
			"Router", "1.0", "Router", "vendor", "vendor"))
		Expect(errs.IsBusinessRuleViolation(check(repo, slow))).To(BeTrue())
	})

	It("requires matching target values", func() {
		Must(repo.CreateBusinessRule(f.ctx, "cisco ports", "", me.RuleTypeRelationshipByAttributeValue, me.RuleScopeGlobal,
			"Router", "1.0", "Port", "vendor", "speed", "cisco", "10G"))
		MustBeSuccessful(check(repo, fast))
		Expect(errs.IsBusinessRuleViolation(check(repo, slow))).To(BeTrue())
	})

	It("fails if no rule matches the source", func() {
		Must(repo.CreateBusinessRule(f.ctx, "juniper ports", "", me.RuleTypeRelationshipByAttributeValue, me.RuleScopeGlobal,
			"Router", "1.0", "Port", "vendor", "speed", "juniper", "10G"))
		Expect(errs.IsBusinessRuleViolation(check(repo, fast))).To(BeTrue())
	})

	It("accepts rules without values", func() {
		Must(repo.CreateBusinessRule(f.ctx, "any port", "", me.RuleTypeRelationshipByAttributeValue, me.RuleScopeGlobal,
			"Router", "1.0", "Port", "vendor", "speed"))
		MustBeSuccessful(check(repo, slow))
	})

	It("is skipped when not enforced", func() {
		Must(repo.CreateBusinessRule(f.ctx, "cisco ports", "", me.RuleTypeRelationshipByAttributeValue, me.RuleScopeGlobal,
			"Router", "1.0", "Port", "vendor", "speed", "cisco", "10G"))
		MustBeSuccessful(check(me.New(f.store, f.catalog), slow))
	})

	It("lists and deletes rules", func() {
		a := Must(repo.CreateBusinessRule(f.ctx, "b", "", me.RuleTypeRelationshipByAttributeValue, me.RuleScopeLocal, "Router", "1", "Port", "vendor", "speed"))
		Must(repo.CreateBusinessRule(f.ctx, "a", "", me.RuleTypeRelationshipByAttributeValue, me.RuleScopeLocal, "Router", "1", "Port", "vendor", "speed"))
		list := Must(repo.BusinessRules(f.ctx, me.RuleTypeAll))
		Expect(list).To(HaveLen(2))
		Expect(list[0].Constraints()[:3]).To(Equal([]string{"Port", "vendor", "speed"}))

		MustBeSuccessful(repo.DeleteBusinessRule(f.ctx, a))
		Expect(Must(repo.BusinessRules(f.ctx, me.RuleTypeRelationshipByAttributeValue))).To(HaveLen(1))
		_, err := repo.CreateBusinessRule(f.ctx, "none", "", me.RuleTypeRelationshipByAttributeValue, me.RuleScopeLocal, "Router", "1")
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
	})
})
