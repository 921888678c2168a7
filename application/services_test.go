package application_test

import (
	"context"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/application"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/events"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/script"
)

var _ = Describe("synchronization", func() {
	var (
		f      *fixture
		repo   *me.Repository
		router string
		g1, g2 string
	)

	BeforeEach(func() {
		f = newFixture()
		repo = me.New(f.store, f.catalog)
		router = f.create("Router", "", "-1", map[string]string{"name": "r1"})
		g1 = Must(repo.CreateSyncGroup(f.ctx, "snmp"))
		g2 = Must(repo.CreateSyncGroup(f.ctx, "ssh"))
	})

	It("attaches one configuration per object", func() {
		id := Must(repo.CreateSyncDataSourceConfig(f.ctx, "Router", router, g1, "r1-snmp", map[string]string{"community": "public"}))
		_, err := repo.CreateSyncDataSourceConfig(f.ctx, "Router", router, g1, "again", nil)
		Expect(errs.IsNotPermitted(err)).To(BeTrue())

		c := Must(repo.SyncDataSourceConfigForObject(f.ctx, "Router", router))
		Expect(c.ID).To(Equal(id))
		Expect(c.ObjectID).To(Equal(router))
		Expect(c.Parameters).To(Equal(map[string]string{"community": "public"}))

		MustBeSuccessful(repo.UpdateSyncDataSourceConfig(f.ctx, id, "", map[string]string{"community": "", "port": "161"}))
		Expect(Must(repo.SyncDataSourceConfigForObject(f.ctx, "Router", router)).Parameters).To(Equal(map[string]string{"port": "161"}))
	})

	It("moves, copies and releases configurations", func() {
		id := Must(repo.CreateSyncDataSourceConfig(f.ctx, "Router", router, g1, "r1", nil))
		MustBeSuccessful(repo.MoveSyncDataSourceConfigs(f.ctx, g1, g2, id))
		Expect(Must(repo.SyncDataSourceConfigs(f.ctx, g1))).To(BeEmpty())
		Expect(Must(repo.SyncDataSourceConfigs(f.ctx, g2))).To(HaveLen(1))

		Expect(errs.IsNotPermitted(repo.ReleaseSyncDataSourceConfigs(f.ctx, g2, id))).To(BeTrue())
		MustBeSuccessful(repo.CopySyncDataSourceConfigs(f.ctx, g1, id))
		Expect(errs.IsInvalidArgument(repo.CopySyncDataSourceConfigs(f.ctx, g1, id))).To(BeTrue())
		MustBeSuccessful(repo.ReleaseSyncDataSourceConfigs(f.ctx, g2, id))
		Expect(Must(repo.SyncDataSourceConfigs(f.ctx, g1))).To(HaveLen(1))
	})

	It("manages groups", func() {
		MustBeSuccessful(repo.UpdateSyncGroup(f.ctx, g1, "netconf"))
		list := Must(repo.SyncGroups(f.ctx))
		Expect(list).To(HaveLen(2))
		Expect(list[0].Name).To(Equal("netconf"))
		MustBeSuccessful(repo.DeleteSyncGroup(f.ctx, g1))
		_, err := repo.GetSyncGroup(f.ctx, g1)
		Expect(errs.IsApplicationObjectNotFound(err)).To(BeTrue())
	})
})

var _ = Describe("configuration variables", func() {
	var (
		f    *fixture
		repo *me.Repository
		pool string
	)

	BeforeEach(func() {
		f = newFixture()
		repo = me.New(f.store, f.catalog)
		pool = Must(repo.CreateConfigVariablesPool(f.ctx, "snmp", "snmp settings"))
	})

	It("types values", func() {
		Must(repo.CreateConfigVariable(f.ctx, pool, "snmp.timeout", "", me.VariableTypeInteger, false, "30"))
		Must(repo.CreateConfigVariable(f.ctx, pool, "snmp.hosts", "", me.VariableTypeArray, false, "a,b"))
		Must(repo.CreateConfigVariable(f.ctx, pool, "snmp.bad", "", me.VariableTypeFloat, false, "x"))
		Expect(Must(repo.ConfigVariableValue(f.ctx, "snmp.timeout"))).To(Equal(int64(30)))
		Expect(Must(repo.ConfigVariableValue(f.ctx, "snmp.hosts"))).To(Equal([]string{"a", "b"}))
		_, err := repo.ConfigVariableValue(f.ctx, "snmp.bad")
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
	})

	It("masks values in listings only", func() {
		Must(repo.CreateConfigVariable(f.ctx, pool, "snmp.community", "", me.VariableTypeString, true, "private"))
		list := Must(repo.ConfigVariablesInPool(f.ctx, pool))
		Expect(list).To(HaveLen(1))
		Expect(list[0].Value).NotTo(Equal("private"))
		Expect(list[0].PoolID).To(Equal(pool))
		Expect(Must(repo.GetConfigVariable(f.ctx, "snmp.community")).Value).To(Equal("private"))
		Expect(Must(repo.ConfigVariablesWithPrefix(f.ctx, "snmp."))).To(HaveLen(1))
		Expect(Must(repo.ConfigVariablesWithPrefix(f.ctx, ""))).To(BeEmpty())
	})

	It("keeps names unique", func() {
		Must(repo.CreateConfigVariable(f.ctx, pool, "a", "", me.VariableTypeString, false, ""))
		Must(repo.CreateConfigVariable(f.ctx, pool, "b", "", me.VariableTypeString, false, ""))
		_, err := repo.CreateConfigVariable(f.ctx, pool, "a", "", me.VariableTypeString, false, "")
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		Expect(errs.IsInvalidArgument(repo.UpdateConfigVariable(f.ctx, "b", me.VariablePropertyName, "a"))).To(BeTrue())
		MustBeSuccessful(repo.UpdateConfigVariable(f.ctx, "b", me.VariablePropertyValue, "v"))
		MustBeSuccessful(repo.DeleteConfigVariable(f.ctx, "a"))
	})

	It("deletes pools with their variables", func() {
		Must(repo.CreateConfigVariable(f.ctx, pool, "a", "", me.VariableTypeString, false, ""))
		MustBeSuccessful(repo.DeleteConfigVariablesPool(f.ctx, pool))
		Expect(Must(repo.ConfigVariablesPools(f.ctx))).To(BeEmpty())
		_, err := repo.GetConfigVariable(f.ctx, "a")
		Expect(errs.IsApplicationObjectNotFound(err)).To(BeTrue())
	})
})

var _ = Describe("validators", func() {
	var (
		f        *fixture
		registry *script.Registry
		repo     *me.Repository
		router   string
	)

	BeforeEach(func() {
		f = newFixture()
		registry = script.NewRegistry()
		repo = me.New(f.store, f.catalog, me.WithEvaluator(registry))
		router = f.create("Router", "", "-1", map[string]string{"name": "r1"})
		registry.Register("unnamed", func(ctx context.Context, b script.Bindings) (script.Result, error) {
			return script.Succeeded(&script.Validator{Name: "unnamed", Properties: map[string]string{"color": "red"}}), nil
		})
		registry.Register("silent", func(ctx context.Context, b script.Bindings) (script.Result, error) {
			return script.Succeeded(nil), nil
		})
	})

	It("runs inherited definitions and skips failures", func() {
		Must(repo.CreateValidatorDefinition(f.ctx, "all", "", "InventoryObject", "unnamed", true))
		Must(repo.CreateValidatorDefinition(f.ctx, "router", "", "Router", "silent", true))
		Must(repo.CreateValidatorDefinition(f.ctx, "broken", "", "Router", "missing", true))
		Must(repo.CreateValidatorDefinition(f.ctx, "port", "", "Port", "unnamed", true))

		Expect(Must(repo.ValidatorDefinitionsForClass(f.ctx, "Router"))).To(HaveLen(3))
		result := Must(repo.RunValidations(f.ctx, "Router", router))
		Expect(result).To(ConsistOf(&script.Validator{Name: "unnamed", Properties: map[string]string{"color": "red"}}))
	})

	It("refreshes the cache on changes", func() {
		id := Must(repo.CreateValidatorDefinition(f.ctx, "all", "", "Router", "unnamed", true))
		Expect(Must(repo.RunValidations(f.ctx, "Router", router))).To(HaveLen(1))
		disabled := false
		MustBeSuccessful(repo.UpdateValidatorDefinition(f.ctx, id, me.ValidatorUpdate{Enabled: &disabled}))
		Expect(Must(repo.RunValidations(f.ctx, "Router", router))).To(BeEmpty())
		MustBeSuccessful(repo.DeleteValidatorDefinition(f.ctx, id))
		Expect(Must(repo.ValidatorDefinitionsForClass(f.ctx, "Router"))).To(BeEmpty())
	})

	It("ignores unknown classes", func() {
		Expect(Must(repo.RunValidations(f.ctx, "Unknown", router))).To(BeNil())
	})
})

var _ = Describe("reports", func() {
	var (
		f        *fixture
		registry *script.Registry
		repo     *me.Repository
		router   string
	)

	BeforeEach(func() {
		f = newFixture()
		registry = script.NewRegistry()
		repo = me.New(f.store, f.catalog, me.WithEvaluator(registry))
		router = f.create("Router", "", "-1", map[string]string{"name": "r1"})
		registry.Register("summary", func(ctx context.Context, b script.Bindings) (script.Result, error) {
			return script.Succeeded([]byte(b.ObjectID + ":" + b.Parameters["format"])), nil
		})
		registry.Register("text", func(ctx context.Context, b script.Bindings) (script.Result, error) {
			return script.Succeeded("not a document"), nil
		})
	})

	It("runs class level reports on subclasses", func() {
		id := Must(repo.CreateClassLevelReport(f.ctx, "InventoryObject", "summary", "", "summary", me.ReportOutputCSV, true))
		Must(repo.CreateClassLevelReport(f.ctx, "Router", "disabled", "", "summary", me.ReportOutputCSV, false))
		Expect(Must(repo.ClassLevelReports(f.ctx, "Router", false, false))).To(BeEmpty())
		Expect(Must(repo.ClassLevelReports(f.ctx, "Router", false, true))).To(HaveLen(1))
		Expect(Must(repo.ClassLevelReports(f.ctx, "Router", true, true))).To(HaveLen(2))

		MustBeSuccessful(repo.UpdateReportParameters(f.ctx, id, map[string]string{"format": "csv"}))
		Expect(string(Must(repo.ExecuteClassLevelReport(f.ctx, "Router", router, id)))).To(Equal(router + ":csv"))
	})

	It("runs inventory level reports", func() {
		Expect(Must(repo.InventoryLevelReports(f.ctx, true))).To(BeEmpty())
		id := Must(repo.CreateInventoryLevelReport(f.ctx, "summary", "", "summary", me.ReportOutputHTML, true, map[string]string{"format": "html"}))
		Expect(Must(repo.InventoryLevelReports(f.ctx, false))).To(HaveLen(1))
		Expect(string(Must(repo.ExecuteInventoryLevelReport(f.ctx, id, map[string]string{"format": "pdf"})))).To(Equal(":pdf"))
		Expect(Must(repo.GetReport(f.ctx, id)).Parameters).To(Equal(map[string]string{"format": "html"}))
	})

	It("rejects results which are no documents", func() {
		id := Must(repo.CreateInventoryLevelReport(f.ctx, "text", "", "text", me.ReportOutputCSV, true, nil))
		_, err := repo.ExecuteInventoryLevelReport(f.ctx, id, nil)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())

		disabled := false
		MustBeSuccessful(repo.UpdateReport(f.ctx, id, me.ReportUpdate{Enabled: &disabled}))
		_, err = repo.ExecuteInventoryLevelReport(f.ctx, id, nil)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		MustBeSuccessful(repo.DeleteReport(f.ctx, id))
		_, err = repo.GetReport(f.ctx, id)
		Expect(errs.IsApplicationObjectNotFound(err)).To(BeTrue())
	})
})

var _ = Describe("favorites and processes", func() {
	var (
		f      *fixture
		repo   *me.Repository
		admin  string
		router string
	)

	BeforeEach(func() {
		f = newFixture()
		repo = me.New(f.store, f.catalog)
		MustBeSuccessful(repo.Bootstrap(f.ctx, "secret"))
		admin = Must(repo.Users(f.ctx))[0].ID
		router = f.create("Router", "", "-1", map[string]string{"name": "r1"})
	})

	It("bookmarks objects", func() {
		folder := Must(repo.CreateFavoritesFolder(f.ctx, admin, "core"))
		MustBeSuccessful(repo.AddObjectToFavorites(f.ctx, admin, folder, "Router", router))
		Expect(errs.IsNotPermitted(repo.AddObjectToFavorites(f.ctx, admin, folder, "Router", router))).To(BeTrue())

		objs := Must(repo.ObjectsInFavoritesFolder(f.ctx, admin, folder, 0))
		Expect(objs).To(ConsistOf(models.ObjectLight{ID: router, Name: "r1", ClassName: "Router"}))
		Expect(Must(repo.FavoritesFoldersForObject(f.ctx, admin, "Router", router))).To(ConsistOf(HaveField("ID", folder)))

		MustBeSuccessful(repo.RemoveObjectFromFavorites(f.ctx, admin, folder, "Router", router))
		Expect(Must(repo.ObjectsInFavoritesFolder(f.ctx, admin, folder, 0))).To(BeEmpty())
		MustBeSuccessful(repo.UpdateFavoritesFolder(f.ctx, admin, folder, "backbone"))
		Expect(Must(repo.GetFavoritesFolder(f.ctx, admin, folder)).Name).To(Equal("backbone"))
		MustBeSuccessful(repo.DeleteFavoritesFolders(f.ctx, admin, folder))
		Expect(Must(repo.FavoritesFolders(f.ctx, admin))).To(BeEmpty())
	})

	It("tracks process instances", func() {
		id := Must(repo.CreateProcessInstance(f.ctx, "provisioning", "order 1", "", "Router", router))
		MustBeSuccessful(repo.UpdateProcessInstance(f.ctx, id, "approve", map[string]string{"form": "ok"}))
		p := Must(repo.GetProcessInstance(f.ctx, id))
		Expect(p.CurrentActivityID).To(Equal("approve"))
		Expect(p.Artifacts).To(Equal(map[string]string{"form": "ok"}))
		Expect(Must(repo.ProcessInstances(f.ctx, "provisioning"))).To(HaveLen(1))
		Expect(Must(repo.ProcessInstancesForObject(f.ctx, "Router", router))).To(HaveLen(1))
		MustBeSuccessful(repo.DeleteProcessInstance(f.ctx, id))
		Expect(Must(repo.ProcessInstances(f.ctx, "provisioning"))).To(BeEmpty())
	})
})

var _ = Describe("audit trail", func() {
	var (
		f      *fixture
		repo   *me.Repository
		router string
	)

	BeforeEach(func() {
		f = newFixture()
		repo = me.New(f.store, f.catalog)
		MustBeSuccessful(repo.Bootstrap(f.ctx, "secret"))
		router = f.create("Router", "", "-1", map[string]string{"name": "r1"})
	})

	It("records object entries", func() {
		changes := &models.ChangeDescriptor{}
		changes.Add("name", "r0", "r1")
		Must(repo.CreateObjectActivityLogEntry(f.ctx, me.AdminUser, "Router", router, me.ActivityUpdateInventoryObject, changes))
		list := Must(repo.ObjectAuditTrail(f.ctx, "Router", router, 0))
		Expect(list).To(HaveLen(1))
		Expect(list[0].UserName).To(Equal(me.AdminUser))
		Expect(list[0].AffectedProperty).To(Equal("name"))
		Expect(list[0].NewValue).To(Equal("r1"))

		_, err := repo.CreateObjectActivityLogEntry(f.ctx, "nobody", "Router", router, me.ActivityUpdateInventoryObject, nil)
		Expect(errs.IsApplicationObjectNotFound(err)).To(BeTrue())
	})

	It("pages the general trail", func() {
		Expect(Must(repo.GeneralActivityAuditTrail(f.ctx, 1, 10))).To(BeEmpty())
		for i := 0; i < 3; i++ {
			Must(repo.CreateGeneralActivityLogEntry(f.ctx, me.AdminUser, me.ActivityOpenSession, nil))
		}
		Expect(Must(repo.GeneralActivityAuditTrail(f.ctx, 1, 2))).To(HaveLen(2))
		Expect(Must(repo.GeneralActivityAuditTrail(f.ctx, 2, 2))).To(HaveLen(1))
		Expect(Must(repo.GeneralActivityAuditTrail(f.ctx, 3, 2))).To(BeEmpty())
		Expect(Must(repo.GeneralActivityAuditTrail(f.ctx, 0, 0))).To(HaveLen(3))
	})

	It("audits published events", func() {
		recorder := &events.Recorder{}
		auditor := repo.Auditor(me.AdminUser, recorder)
		MustBeSuccessful(auditor.Publish(f.ctx, events.New(events.ObjectCreated, models.ObjectLight{ID: router, Name: "r1", ClassName: "Router"})))
		MustBeSuccessful(auditor.Publish(f.ctx, events.New(events.ObjectDeleted, models.ObjectLight{ID: "gone", Name: "r9", ClassName: "Router"})))
		Expect(recorder.Events()).To(HaveLen(2))
		Expect(Must(repo.ObjectAuditTrail(f.ctx, "Router", router, 0))).To(HaveLen(1))
		Expect(Must(repo.GeneralActivityAuditTrail(f.ctx, 1, 0))).To(HaveLen(1))
	})
})
