package app_test

import (
	"bytes"
	"strings"

	. "github.com/mandelsoft/goutils/testutils"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/cmd/neoinventory/app"
)

const classes = `
classes:
- name: City
  parent: InventoryObject
  possibleChildren: [Router]
- name: Router
  parent: InventoryObject
  attributes:
  - name: model
containment:
  DummyRoot: [City]
`

const document = `
store:
  snapshot: /data/inventory.yaml
files:
  root: /data/files
metadata:
  classes: /classes.yaml
admin:
  password: secret
logging:
  level: error
`

var _ = Describe("neoinventory command", func() {
	var fs vfs.FileSystem

	BeforeEach(func() {
		fs = memoryfs.New()
		MustBeSuccessful(vfs.WriteFile(fs, "/classes.yaml", []byte(classes), 0o600))
		MustBeSuccessful(vfs.WriteFile(fs, "/inventory.yaml", []byte(document), 0o600))
		MustBeSuccessful(fs.MkdirAll("/data", 0o700))
	})

	execute := func(args ...string) (string, error) {
		buf := bytes.NewBuffer(nil)
		cmd := app.New(fs)
		cmd.SetOut(buf)
		cmd.SetErr(buf)
		cmd.SetArgs(append([]string{"-c", "/inventory.yaml"}, args...))
		err := cmd.Execute()
		return buf.String(), err
	}
	run := func(args ...string) string {
		return strings.TrimSpace(Must(execute(args...)))
	}

	It("initializes the instance", func() {
		Expect(run("init")).To(HavePrefix("inventory initialized"))
		Must(fs.Stat("/data/inventory.yaml"))
	})

	It("manages objects across invocations", func() {
		city := run("object", "create", "City", "-a", "name=Berlin")
		router := run("object", "create", "Router", "-C", "City", "-p", city, "-a", "name=r1,model=mx")
		Expect(router).NotTo(BeEmpty())

		Expect(run("object", "children", "City", city)).To(ContainSubstring("r1"))
		Expect(run("object", "get", "Router", router, "-o", "yaml")).To(ContainSubstring("model: mx"))

		run("object", "delete", "City", city)
		_, err := execute("object", "get", "Router", router)
		Expect(err).To(HaveOccurred())
	})

	It("manages pools", func() {
		pool := run("pool", "create", "routers", "Router", "-d", "spare routers")
		Expect(run("pool", "list")).To(ContainSubstring("routers"))
		run("pool", "add", pool, "Router", "-a", "name=spare1")
		Expect(run("pool", "items", pool)).To(ContainSubstring("spare1"))
	})

	It("manages users", func() {
		run("user", "create", "jdoe", "-P", "s3cret", "--first-name", "John")
		out := run("user", "list")
		Expect(out).To(ContainSubstring("admin"))
		Expect(out).To(ContainSubstring("jdoe"))

		_, err := execute("user", "create", "other", "-P", "pw", "-g", "unknown")
		Expect(err).To(HaveOccurred())
	})

	It("lists classes", func() {
		out := run("classes", "list", "-p", "InventoryObject")
		Expect(out).To(ContainSubstring("City"))
		Expect(out).To(ContainSubstring("Router"))
		Expect(out).NotTo(ContainSubstring("GenericObjectList"))

		_, err := execute("classes", "list", "-o", "json")
		Expect(err).To(HaveOccurred())
	})
})
