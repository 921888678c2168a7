package application_test

import (
	"time"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/application"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
)

var _ = Describe("users and groups", func() {
	var (
		f       *fixture
		repo    *me.Repository
		adminGr string
	)

	BeforeEach(func() {
		f = newFixture()
		repo = me.New(f.store, f.catalog)
		MustBeSuccessful(repo.Bootstrap(f.ctx, "secret"))
		list := Must(repo.Groups(f.ctx))
		Expect(list).To(HaveLen(1))
		adminGr = list[0].ID
	})

	It("bootstraps the administrator only once", func() {
		MustBeSuccessful(repo.Bootstrap(f.ctx, "other"))
		list := Must(repo.Users(f.ctx))
		Expect(list).To(HaveLen(1))
		Expect(list[0].Name).To(Equal(me.AdminUser))
		Expect(list[0].Password).NotTo(Equal("secret"))
	})

	It("creates users with privileges", func() {
		id := Must(repo.CreateUser(f.ctx, &me.User{
			Name:       "jdoe",
			Enabled:    true,
			Type:       me.UserTypeGUI,
			Privileges: []me.Privilege{{FeatureToken: "nav-tree", AccessLevel: me.AccessLevelReadWrite}},
		}, "pw", adminGr))
		u := Must(repo.GetUser(f.ctx, id))
		Expect(u.Name).To(Equal("jdoe"))
		Expect(u.Privileges).To(ConsistOf(HaveField("FeatureToken", "nav-tree")))
		Expect(Must(repo.UsersInGroup(f.ctx, adminGr))).To(HaveLen(2))
	})

	It("rejects invalid users", func() {
		_, err := repo.CreateUser(f.ctx, &me.User{Name: me.AdminUser, Type: me.UserTypeGUI}, "pw", adminGr)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		_, err = repo.CreateUser(f.ctx, &me.User{Name: "bad name!", Type: me.UserTypeGUI}, "pw", adminGr)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		_, err = repo.CreateUser(f.ctx, &me.User{Name: "nopw", Type: me.UserTypeGUI}, "", adminGr)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		_, err = repo.CreateUser(f.ctx, &me.User{Name: "dup", Type: me.UserTypeGUI, Privileges: []me.Privilege{
			{FeatureToken: "a", AccessLevel: me.AccessLevelReadOnly},
			{FeatureToken: "a", AccessLevel: me.AccessLevelReadWrite},
		}}, "pw", adminGr)
		Expect(errs.IsNotPermitted(err)).To(BeTrue())
	})

	It("protects the administrator", func() {
		admin := Must(repo.Users(f.ctx))[0]
		Expect(errs.IsNotPermitted(repo.DeleteUsers(f.ctx, admin.ID))).To(BeTrue())
		Expect(errs.IsNotPermitted(repo.UpdateUser(f.ctx, admin.ID, me.UserUpdate{Name: "root"}))).To(BeTrue())
		Expect(errs.IsNotPermitted(repo.RemoveUserFromGroup(f.ctx, admin.ID, adminGr))).To(BeTrue())
		Expect(errs.IsNotPermitted(repo.DeleteGroups(f.ctx, adminGr))).To(BeTrue())
	})

	It("deletes users left without group together with the group", func() {
		ops := Must(repo.CreateGroup(f.ctx, "ops", "operators", nil))
		id := Must(repo.CreateUser(f.ctx, &me.User{Name: "jdoe", Type: me.UserTypeGUI}, "pw", ops))
		MustBeSuccessful(repo.DeleteGroups(f.ctx, ops))
		_, err := repo.GetUser(f.ctx, id)
		Expect(errs.IsApplicationObjectNotFound(err)).To(BeTrue())
	})

	It("manages group membership", func() {
		ops := Must(repo.CreateGroup(f.ctx, "ops", "operators", nil))
		id := Must(repo.CreateUser(f.ctx, &me.User{Name: "jdoe", Type: me.UserTypeGUI}, "pw", adminGr))
		MustBeSuccessful(repo.AddUserToGroup(f.ctx, id, ops))
		Expect(errs.IsInvalidArgument(repo.AddUserToGroup(f.ctx, id, ops))).To(BeTrue())
		Expect(Must(repo.GroupsForUser(f.ctx, id))).To(HaveLen(2))
		MustBeSuccessful(repo.RemoveUserFromGroup(f.ctx, id, ops))
		Expect(errs.IsInvalidArgument(repo.RemoveUserFromGroup(f.ctx, id, ops))).To(BeTrue())
	})

	It("upserts privileges by feature token", func() {
		ops := Must(repo.CreateGroup(f.ctx, "ops", "operators", nil))
		MustBeSuccessful(repo.SetGroupPrivilege(f.ctx, ops, "reports", me.AccessLevelReadOnly))
		MustBeSuccessful(repo.SetGroupPrivilege(f.ctx, ops, "reports", me.AccessLevelReadWrite))
		g := Must(repo.GetGroup(f.ctx, ops))
		Expect(g.Privileges).To(HaveLen(1))
		Expect(g.Privileges[0].FeatureToken).To(Equal("reports"))
		Expect(g.Privileges[0].AccessLevel).To(Equal(me.AccessLevelReadWrite))
		MustBeSuccessful(repo.RemoveGroupPrivilege(f.ctx, ops, "reports"))
		Expect(errs.IsInvalidArgument(repo.RemoveGroupPrivilege(f.ctx, ops, "reports"))).To(BeTrue())
	})
})

var _ = Describe("sessions", func() {
	var (
		f    *fixture
		repo *me.Repository
		now  time.Time
	)

	BeforeEach(func() {
		f = newFixture()
		now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		repo = me.New(f.store, f.catalog,
			me.WithSessionTTL(time.Hour),
			me.WithClock(func() time.Time { return now }),
		)
		MustBeSuccessful(repo.Bootstrap(f.ctx, "secret"))
	})

	It("authenticates users", func() {
		_, err := repo.CreateSession(f.ctx, me.AdminUser, "wrong", me.SessionTypeDesktop, "10.0.0.1")
		Expect(errs.IsNotAuthorized(err)).To(BeTrue())
		_, err = repo.CreateSession(f.ctx, "nobody", "secret", me.SessionTypeDesktop, "10.0.0.1")
		Expect(errs.IsApplicationObjectNotFound(err)).To(BeTrue())

		sess := Must(repo.CreateSession(f.ctx, me.AdminUser, "secret", me.SessionTypeDesktop, "10.0.0.1"))
		Expect(Must(repo.ValidateCall("getObject", "10.0.0.1", sess.Token)).UserName).To(Equal(me.AdminUser))
		_, err = repo.ValidateCall("getObject", "10.0.0.2", sess.Token)
		Expect(errs.IsNotAuthorized(err)).To(BeTrue())
		Expect(Must(repo.UserInSession(f.ctx, sess.Token)).Name).To(Equal(me.AdminUser))
	})

	It("keeps one session per user and type", func() {
		first := Must(repo.CreateSession(f.ctx, me.AdminUser, "secret", me.SessionTypeDesktop, "10.0.0.1"))
		second := Must(repo.CreateSession(f.ctx, me.AdminUser, "secret", me.SessionTypeDesktop, "10.0.0.1"))
		Must(repo.CreateSession(f.ctx, me.AdminUser, "secret", me.SessionTypeWeb, "10.0.0.1"))
		_, err := repo.ValidateCall("m", "10.0.0.1", first.Token)
		Expect(errs.IsNotAuthorized(err)).To(BeTrue())
		Must(repo.ValidateCall("m", "10.0.0.1", second.Token))
		Expect(repo.Sessions()).To(HaveLen(2))
	})

	It("expires idle sessions", func() {
		sess := Must(repo.CreateSession(f.ctx, me.AdminUser, "secret", me.SessionTypeWeb, "10.0.0.1"))
		now = now.Add(30 * time.Minute)
		Must(repo.ValidateCall("m", "10.0.0.1", sess.Token))
		now = now.Add(61 * time.Minute)
		_, err := repo.ValidateCall("m", "10.0.0.1", sess.Token)
		Expect(errs.IsNotAuthorized(err)).To(BeTrue())
	})

	It("does not resolve users of expired sessions", func() {
		sess := Must(repo.CreateSession(f.ctx, me.AdminUser, "secret", me.SessionTypeWeb, "10.0.0.1"))
		now = now.Add(30 * time.Minute)
		Expect(Must(repo.UserInSession(f.ctx, sess.Token)).Name).To(Equal(me.AdminUser))
		now = now.Add(31 * time.Minute)
		_, err := repo.UserInSession(f.ctx, sess.Token)
		Expect(errs.IsNotAuthorized(err)).To(BeTrue())
		Expect(repo.Sessions()).To(BeEmpty())
	})

	It("closes sessions", func() {
		sess := Must(repo.CreateSession(f.ctx, me.AdminUser, "secret", me.SessionTypeWeb, "10.0.0.1"))
		MustBeSuccessful(repo.CloseSession(sess.Token, "10.0.0.1"))
		Expect(repo.Sessions()).To(BeEmpty())
		Expect(errs.IsNotAuthorized(repo.CloseSession(sess.Token, "10.0.0.1"))).To(BeTrue())
	})

	It("rejects disabled users", func() {
		admin := Must(repo.Users(f.ctx))[0]
		disabled := false
		MustBeSuccessful(repo.UpdateUser(f.ctx, admin.ID, me.UserUpdate{Enabled: &disabled}))
		_, err := repo.CreateSession(f.ctx, me.AdminUser, "secret", me.SessionTypeWeb, "10.0.0.1")
		Expect(errs.IsNotAuthorized(err)).To(BeTrue())
	})
})
