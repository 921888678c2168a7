package templates

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory/templates", "object templates")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
