package application

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory/application", "application entities")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
