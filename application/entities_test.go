package application_test

import (
	"context"

	. "github.com/mandelsoft/goutils/testutils"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/application"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/filestore"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/query"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/script"
)

var _ = Describe("list types", func() {
	var (
		f    *fixture
		repo *me.Repository
	)

	BeforeEach(func() {
		f = newFixture()
		repo = me.New(f.store, f.catalog)
	})

	It("creates and reads items", func() {
		cisco := Must(repo.CreateListTypeItem(f.ctx, "EquipmentVendor", "Cisco", "Cisco Systems"))
		Must(repo.CreateListTypeItem(f.ctx, "EquipmentVendor", "Alcatel", ""))
		list := Must(repo.ListTypeItems(f.ctx, "EquipmentVendor"))
		Expect(list).To(HaveLen(2))
		Expect(list[0].Name).To(Equal("Alcatel"))

		item := Must(repo.GetListTypeItem(f.ctx, "EquipmentVendor", cisco))
		Expect(item.DisplayName).To(Equal("Cisco Systems"))
		Expect(Must(repo.ListTypeItemWithName(f.ctx, "EquipmentVendor", "Cisco")).ID).To(Equal(cisco))
		Expect(repo.InstanceableListTypes()).To(ContainElements("EquipmentVendor", "PortSpeed"))
	})

	It("rejects classes which are no list types", func() {
		_, err := repo.CreateListTypeItem(f.ctx, "Router", "r1", "")
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		_, err = repo.CreateListTypeItem(f.ctx, "GenericObjectList", "x", "")
		Expect(errs.IsNotPermitted(err)).To(BeTrue())
	})

	It("updates items", func() {
		id := Must(repo.CreateListTypeItem(f.ctx, "EquipmentVendor", "Cisco", ""))
		changes := Must(repo.UpdateListTypeItem(f.ctx, "EquipmentVendor", id, map[string]string{"name": "Juniper"}))
		Expect(changes.AffectedProperties).To(ConsistOf("name"))
		_, err := repo.UpdateListTypeItem(f.ctx, "EquipmentVendor", id, map[string]string{"name": ""})
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
	})

	It("protects used items", func() {
		id := Must(repo.CreateListTypeItem(f.ctx, "EquipmentVendor", "Cisco", ""))
		router := f.create("Router", "", "-1", map[string]string{"name": "r1", "vendor": id})
		uses := Must(repo.ListTypeItemUses(f.ctx, "EquipmentVendor", id, 0))
		Expect(uses).To(HaveLen(1))
		Expect(uses[0].ID).To(Equal(router))

		Expect(errs.IsNotPermitted(repo.DeleteListTypeItem(f.ctx, "EquipmentVendor", id, false))).To(BeTrue())
		MustBeSuccessful(repo.DeleteListTypeItem(f.ctx, "EquipmentVendor", id, true))
		_, err := repo.GetListTypeItem(f.ctx, "EquipmentVendor", id)
		Expect(errs.IsObjectNotFound(err)).To(BeTrue())
	})
})

var _ = Describe("views", func() {
	var (
		f      *fixture
		files  *filestore.Store
		repo   *me.Repository
		router string
	)

	BeforeEach(func() {
		f = newFixture()
		files = Must(filestore.New("/files", memoryfs.New()))
		repo = me.New(f.store, f.catalog, me.WithFileStore(files))
		router = f.create("Router", "", "-1", map[string]string{"name": "r1"})
	})

	It("keeps object views with backgrounds", func() {
		id := Must(repo.CreateObjectView(f.ctx, "Router", router, "rack", "front", "RackView", []byte("<view/>"), []byte("png")))
		Expect(files.Exists(filestore.Name(router, id))).To(BeTrue())

		v := Must(repo.GetObjectView(f.ctx, "Router", router, id))
		Expect(v.Structure).To(Equal([]byte("<view/>")))
		Expect(v.BackgroundData).To(Equal([]byte("png")))

		changes := Must(repo.UpdateObjectView(f.ctx, "Router", router, id, "rack2", "", nil, nil))
		Expect(changes.AffectedProperties).To(ContainElement("name"))
		Expect(files.Exists(filestore.Name(router, id))).To(BeFalse())

		list := Must(repo.ObjectViews(f.ctx, "Router", router, 0))
		Expect(list).To(HaveLen(1))
		Expect(list[0].Name).To(Equal("rack2"))
		Expect(list[0].Structure).To(BeNil())

		MustBeSuccessful(repo.DeleteObjectView(f.ctx, "Router", router, id))
		Expect(Must(repo.ObjectViews(f.ctx, "Router", router, 0))).To(BeEmpty())
	})

	It("keeps general views", func() {
		a := Must(repo.CreateGeneralView(f.ctx, "Topology", "core", "", []byte("a"), []byte("bg")))
		Must(repo.CreateGeneralView(f.ctx, "Topology", "access", "", []byte("b"), nil))
		Must(repo.CreateGeneralView(f.ctx, "Map", "europe", "", []byte("c"), nil))

		Expect(Must(repo.GeneralViews(f.ctx, "Topology", 0))).To(HaveLen(2))
		Expect(Must(repo.GeneralViews(f.ctx, "", 0))).To(HaveLen(3))
		Expect(Must(repo.GeneralViews(f.ctx, "", 1))).To(HaveLen(1))
		Expect(Must(repo.GetGeneralView(f.ctx, a)).BackgroundData).To(Equal([]byte("bg")))

		MustBeSuccessful(repo.DeleteGeneralViews(f.ctx, a))
		Expect(files.Exists(filestore.Name("general", a))).To(BeFalse())
		_, err := repo.GetGeneralView(f.ctx, a)
		Expect(errs.IsApplicationObjectNotFound(err)).To(BeTrue())
	})

	It("rejects views without name", func() {
		_, err := repo.CreateGeneralView(f.ctx, "Topology", " ", "", nil, nil)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
	})
})

var _ = Describe("queries", func() {
	var (
		f     *fixture
		repo  *me.Repository
		admin string
	)

	BeforeEach(func() {
		f = newFixture()
		repo = me.New(f.store, f.catalog)
		MustBeSuccessful(repo.Bootstrap(f.ctx, "secret"))
		admin = Must(repo.Users(f.ctx))[0].ID
	})

	It("separates public and private queries", func() {
		Must(repo.CreateQuery(f.ctx, "all routers", "", "", []byte("{}")))
		private := Must(repo.CreateQuery(f.ctx, "mine", admin, "", []byte("{}")))
		Expect(Must(repo.Queries(f.ctx, true))).To(HaveLen(2))
		Expect(Must(repo.Queries(f.ctx, false))).To(ConsistOf(HaveField("Name", "mine")))

		MustBeSuccessful(repo.SaveQuery(f.ctx, private, "shared", "", "", []byte("{}")))
		Expect(Must(repo.GetQuery(f.ctx, private)).Public).To(BeTrue())
		MustBeSuccessful(repo.DeleteQuery(f.ctx, private))
		_, err := repo.GetQuery(f.ctx, private)
		Expect(errs.IsApplicationObjectNotFound(err)).To(BeTrue())
	})

	It("executes queries", func() {
		f.create("Router", "", "-1", map[string]string{"name": "r1", "model": "x1"})
		f.create("Router", "", "-1", map[string]string{"name": "r2", "model": "x2"})
		result := Must(repo.ExecuteQuery(f.ctx, &query.ExtendedQuery{
			ClassName:  "Router",
			Conditions: []query.Condition{{Attribute: "model", Operator: query.Equal, Value: "x2"}},
		}))
		Expect(result).To(HaveLen(2))
		Expect(result[1].Name).To(Equal("r2"))
	})
})

var _ = Describe("tasks", func() {
	var (
		f        *fixture
		registry *script.Registry
		repo     *me.Repository
		admin    string
	)

	BeforeEach(func() {
		f = newFixture()
		registry = script.NewRegistry()
		repo = me.New(f.store, f.catalog, me.WithEvaluator(registry))
		MustBeSuccessful(repo.Bootstrap(f.ctx, "secret"))
		admin = Must(repo.Users(f.ctx))[0].ID

		registry.Register("hello", func(ctx context.Context, b script.Bindings) (script.Result, error) {
			return script.Succeeded((&script.TaskResult{}).Add(script.MessageSuccess, "hello "+b.Parameters["who"])), nil
		})
		registry.Register("broken", func(ctx context.Context, b script.Bindings) (script.Result, error) {
			return script.Failed("boom"), nil
		})
		registry.Register("wrong", func(ctx context.Context, b script.Bindings) (script.Result, error) {
			return script.Succeeded(42), nil
		})
	})

	create := func(name, scriptName string) string {
		return Must(repo.CreateTask(f.ctx, &me.Task{Name: name, Enabled: true, Script: scriptName, Parameters: map[string]string{"who": "world"}}))
	}

	It("stores parameters and schedules", func() {
		id := create("greet", "hello")
		MustBeSuccessful(repo.UpdateTaskParameters(f.ctx, id, map[string]string{"who": "", "lang": "en"}))
		MustBeSuccessful(repo.UpdateTaskSchedule(f.ctx, id, me.TaskSchedule{ExecutionType: me.ExecutionTypeLoop, EveryXMinutes: 5}))
		MustBeSuccessful(repo.UpdateTaskProperties(f.ctx, id, me.TaskPropertyDescription, "says hello"))
		Expect(errs.IsInvalidArgument(repo.UpdateTaskProperties(f.ctx, id, "executionType", "1"))).To(BeTrue())
		Expect(errs.IsInvalidArgument(repo.UpdateTaskNotificationType(f.ctx, id, me.NotificationEmail, ""))).To(BeTrue())

		t := Must(repo.GetTask(f.ctx, id))
		Expect(t.Parameters).To(Equal(map[string]string{"lang": "en"}))
		Expect(t.EveryXMinutes).To(Equal(int64(5)))
		Expect(t.Description).To(Equal("says hello"))
	})

	It("manages subscriptions", func() {
		id := create("greet", "hello")
		MustBeSuccessful(repo.SubscribeUserToTask(f.ctx, admin, id))
		Expect(errs.IsInvalidArgument(repo.SubscribeUserToTask(f.ctx, admin, id))).To(BeTrue())
		Expect(Must(repo.TasksForUser(f.ctx, admin))).To(HaveLen(1))
		Expect(Must(repo.SubscribersForTask(f.ctx, id))).To(HaveLen(1))
		MustBeSuccessful(repo.UnsubscribeUserFromTask(f.ctx, admin, id))
		Expect(errs.IsApplicationObjectNotFound(repo.UnsubscribeUserFromTask(f.ctx, admin, id))).To(BeTrue())
	})

	It("executes tasks", func() {
		res := Must(repo.ExecuteTask(f.ctx, create("greet", "hello")))
		Expect(res.Messages).To(ConsistOf(script.TaskMessage{Type: script.MessageSuccess, Message: "hello world"}))

		res = Must(repo.ExecuteTask(f.ctx, create("fail", "broken")))
		Expect(res.Messages).To(ConsistOf(script.TaskMessage{Type: script.MessageError, Message: "boom"}))

		_, err := repo.ExecuteTask(f.ctx, create("typed", "wrong"))
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		_, err = repo.ExecuteTask(f.ctx, create("unknown", "missing"))
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
	})

	It("does not run disabled tasks", func() {
		id := create("greet", "hello")
		MustBeSuccessful(repo.UpdateTaskProperties(f.ctx, id, me.TaskPropertyEnabled, "false"))
		_, err := repo.ExecuteTask(f.ctx, id)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		MustBeSuccessful(repo.DeleteTask(f.ctx, id))
		Expect(Must(repo.Tasks(f.ctx))).To(BeEmpty())
	})
})
