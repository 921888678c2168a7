package neoinventory

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory", "inventory instance")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
