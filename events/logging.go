package events

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory/events", "change event publishing")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
