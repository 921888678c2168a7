package memgraph

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory/graph/memory", "embedded in-memory graph store")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
