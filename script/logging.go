package script

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory/script", "script evaluation")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
