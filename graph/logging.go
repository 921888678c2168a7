package graph

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory/graph", "property graph access")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
