package search

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory/search", "suggestion index")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
