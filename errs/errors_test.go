package errs_test

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
)

var _ = Describe("classified errors", func() {
	It("narrows not found errors by entity", func() {
		err := me.ObjectNotFound("Router", "4711")
		Expect(err.Error()).To(Equal("object of class Router with id 4711 could not be found"))
		Expect(me.IsNotFound(err)).To(BeTrue())
		Expect(me.IsObjectNotFound(err)).To(BeTrue())
		Expect(me.IsMetadataNotFound(err)).To(BeFalse())
		Expect(me.IsApplicationObjectNotFound(err)).To(BeFalse())
	})

	It("survives wrapping", func() {
		err := fmt.Errorf("creating object: %w", me.InvalidArgumentf("attribute %s is mandatory", "serialNumber"))
		Expect(me.IsInvalidArgument(err)).To(BeTrue())
		Expect(me.IsNotPermitted(err)).To(BeFalse())
		c, ok := me.ClassOf(err)
		Expect(ok).To(BeTrue())
		Expect(c).To(Equal(me.InvalidArgument))
	})

	It("keeps the cause of wrapped errors", func() {
		cause := errors.New("disk full")
		err := me.Wrap(me.OperationNotPermitted, cause, "saving %s", "file")
		Expect(errors.Is(err, cause)).To(BeTrue())
		Expect(err.Error()).To(Equal("saving file: disk full"))
		Expect(me.Wrap(me.NotAuthorized, nil, "ignored")).To(BeNil())
	})

	It("does not classify plain errors", func() {
		_, ok := me.ClassOf(errors.New("plain"))
		Expect(ok).To(BeFalse())
		Expect(me.IsBusinessRuleViolation(errors.New("plain"))).To(BeFalse())
		Expect(me.IsBusinessRuleViolation(me.BusinessRulef("no matching rule"))).To(BeTrue())
		Expect(me.IsNotAuthorized(me.NotAuthorizedf("ip mismatch"))).To(BeTrue())
	})
})
