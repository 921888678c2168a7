package filestore

import (
	"github.com/mandelsoft/logging"
)

var REALM = logging.DefineRealm("neoinventory/files", "attachment and background file store")

var log = logging.DynamicLogger(logging.DefaultContext(), REALM)
