package script_test

import (
	"context"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/script"
)

var _ = Describe("script registry", func() {
	ctx := context.Background()

	It("dispatches by name", func() {
		r := me.NewRegistry().Register("hello", func(ctx context.Context, b me.Bindings) (me.Result, error) {
			return me.Succeeded((&me.TaskResult{}).Add(me.MessageSuccess, "hello "+b.Parameters["who"])), nil
		})
		res := Must(r.Evaluate(ctx, " hello\n", me.Bindings{Parameters: map[string]string{"who": "world"}}))
		Expect(res.Kind).To(Equal(me.Success))
		Expect(res.Payload).To(Equal(&me.TaskResult{Messages: []me.TaskMessage{{Type: me.MessageSuccess, Message: "hello world"}}}))
		Expect(r.Names()).To(ConsistOf("hello"))
	})

	It("rejects unknown scripts", func() {
		_, err := me.NewRegistry().Evaluate(ctx, "missing", me.Bindings{})
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
	})

	It("creates failures", func() {
		res := me.Failed("boom")
		Expect(res.Kind.String()).To(Equal("failure"))
		Expect(res.Messages).To(Equal([]string{"boom"}))
	})
})
