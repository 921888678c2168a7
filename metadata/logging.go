package metadata

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory/metadata", "class catalog")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
