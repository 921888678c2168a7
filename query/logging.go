package query

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory/query", "extended queries")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
