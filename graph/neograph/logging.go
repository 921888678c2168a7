package neograph

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory/graph/neo4j", "Neo4j graph store")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
