package metrics_test

import (
	"context"
	"errors"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph/memgraph"
	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/metrics"
)

var _ = Describe("store instrumentation", func() {
	var (
		ctx   context.Context
		reg   *prometheus.Registry
		store *me.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = prometheus.NewRegistry()
		store = Must(me.Instrument(memgraph.New(), reg))
	})

	It("counts committed write transactions", func() {
		MustBeSuccessful(graph.Update(ctx, store, func(tx graph.Tx) error {
			_, err := tx.CreateNode(ctx, graph.Props{"name": "x"}, "things")
			return err
		}))
		m := store.Metrics()
		Expect(testutil.ToFloat64(m.Transactions(graph.WriteMode))).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.Outcomes(graph.WriteMode, me.OutcomeCommit))).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.Open(graph.WriteMode))).To(Equal(0.0))
	})

	It("counts rollbacks", func() {
		err := graph.Update(ctx, store, func(tx graph.Tx) error {
			return errors.New("boom")
		})
		Expect(err).To(MatchError("boom"))
		MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error { return nil }))

		m := store.Metrics()
		Expect(testutil.ToFloat64(m.Outcomes(graph.WriteMode, me.OutcomeRollback))).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.Outcomes(graph.ReadMode, me.OutcomeRollback))).To(Equal(1.0))
		Expect(testutil.ToFloat64(m.Outcomes(graph.WriteMode, me.OutcomeCommit))).To(Equal(0.0))
	})

	It("rejects duplicate registration", func() {
		_, err := me.Instrument(memgraph.New(), reg)
		Expect(err).To(HaveOccurred())
	})

	It("registers all collectors", func() {
		MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error { return nil }))
		Expect(testutil.CollectAndCount(reg)).To(BeNumerically(">=", 3))
	})
})
