package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Component names passed to Component by the app wiring.
const (
	ComponentAPI      = "api"
	ComponentDB       = "db"
	ComponentNotify   = "notify"
	ComponentNotifier = "notifier"
	ComponentQuery    = "query"
)

// Component returns a child of the global logger tagged with "cmp". Call it
// after log.Logger is configured; the child does not follow later changes.
func Component(name string) zerolog.Logger {
	return log.With().Str("cmp", name).Logger()
}
