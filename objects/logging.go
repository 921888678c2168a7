package objects

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory/objects", "inventory objects")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
