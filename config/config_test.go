package config_test

import (
	"os"
	"time"

	. "github.com/mandelsoft/goutils/testutils"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/config"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
)

var _ = Describe("configuration", func() {
	It("provides defaults", func() {
		c := me.Default()
		Expect(c.Store.Backend).To(Equal(me.BackendMemory))
		Expect(c.Files.Root).To(Equal("files"))
		Expect(c.Logging.Level).To(Equal("info"))
		MustBeSuccessful(c.Validate())
	})

	It("expands the environment", func() {
		os.Setenv("NEOINVENTORY_TEST_PASSWORD", "s3cret")
		DeferCleanup(os.Unsetenv, "NEOINVENTORY_TEST_PASSWORD")

		c := Must(me.Parse([]byte(`
store:
  backend: neo4j
  uri: bolt://localhost:7687
  username: neo4j
  password: ${NEOINVENTORY_TEST_PASSWORD}
sessions:
  ttl: 30m
events:
  nats:
    url: nats://localhost:4222
`)))
		Expect(c.Store.Password).To(Equal("s3cret"))
		Expect(c.Store.Database).To(Equal("neo4j"))
		Expect(time.Duration(c.Sessions.TTL)).To(Equal(30 * time.Minute))
		Expect(c.Events.NATS.Prefix).To(Equal("inventory"))
	})

	It("rejects invalid documents", func() {
		_, err := me.Parse([]byte("store:\n  backend: neo4j\n"))
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		_, err = me.Parse([]byte("store:\n  backend: sql\n"))
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		_, err = me.Parse([]byte("unknown: 1\n"))
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		_, err = me.Parse([]byte("sessions:\n  ttl: soon\n"))
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
	})

	It("loads files", func() {
		fs := memoryfs.New()
		MustBeSuccessful(vfs.WriteFile(fs, "/inventory.yaml", []byte("search:\n  enabled: true\nlogging:\n  level: debug\n"), 0o600))
		c := Must(me.Load("/inventory.yaml", fs))
		Expect(c.Search.Enabled).To(BeTrue())
		Expect(c.Logging.Level).To(Equal("debug"))
	})
})
