package events_test

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/mandelsoft/goutils/testutils"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/events"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

var _ = Describe("events", func() {
	ctx := context.Background()
	obj := models.ObjectLight{ID: "4711", Name: "R1", ClassName: "Router"}

	It("records events", func() {
		r := &me.Recorder{}
		MustBeSuccessful(r.Publish(ctx, me.New(me.ObjectCreated, obj)))
		Expect(r.Events()).To(HaveLen(1))
		Expect(r.Events()[0].ObjectID).To(Equal("4711"))
		MustBeSuccessful(me.Noop.Publish(ctx, me.New(me.ObjectDeleted, obj)))
	})

	Context("nats", func() {
		var ns *server.Server

		BeforeEach(func() {
			ns = Must(server.NewServer(&server.Options{Port: -1, NoLog: true, NoSigs: true}))
			go ns.Start()
			Expect(ns.ReadyForConnections(5 * time.Second)).To(BeTrue())
		})

		AfterEach(func() {
			ns.Shutdown()
		})

		It("publishes json on the type subject", func() {
			sub := Must(nats.Connect(ns.ClientURL()))
			defer sub.Close()
			ch := make(chan *nats.Msg, 1)
			Must(sub.ChanSubscribe("inv.>", ch))
			MustBeSuccessful(sub.Flush())

			p := Must(me.Connect(ns.ClientURL(), "inv"))
			defer p.Close()
			Expect(p.Subject(me.ObjectCreated)).To(Equal("inv.object.created"))
			MustBeSuccessful(p.Publish(ctx, me.New(me.ObjectCreated, obj)))

			var msg *nats.Msg
			Eventually(ch, 5*time.Second).Should(Receive(&msg))
			Expect(msg.Subject).To(Equal("inv.object.created"))
			var ev me.Event
			MustBeSuccessful(json.Unmarshal(msg.Data, &ev))
			Expect(ev.ClassName).To(Equal("Router"))
			Expect(ev.Name).To(Equal("R1"))
		})
	})
})
