package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/colonyops/backoffice/internal/backoffice"
	"github.com/colonyops/backoffice/internal/core/apierr"
	"github.com/colonyops/backoffice/internal/core/config"
	"github.com/colonyops/backoffice/internal/core/i18n"
	"github.com/colonyops/backoffice/internal/core/logging"
	corenotify "github.com/colonyops/backoffice/internal/core/notify"
	"github.com/colonyops/backoffice/internal/core/query"
	"github.com/colonyops/backoffice/internal/data/db"
	"github.com/colonyops/backoffice/internal/data/stores"
	"github.com/colonyops/backoffice/internal/notifier"
	"github.com/colonyops/backoffice/internal/notify"
	"github.com/colonyops/backoffice/internal/toast"
)

// App holds the services shared by all commands. main allocates it before
// the commands are registered and fills it in the Before hook.
type App struct {
	Config  *config.Config
	Query   *query.Client
	Service *backoffice.Service
	Bus     *notify.Bus
	Toasts  *toast.Surface

	db         *db.DB
	unregister func()
}

// NewApp wires the request engine, notifier, toast surface and history store
// from cfg. Toasts are written to toastOut.
func NewApp(cfg *config.Config, toastOut io.Writer) (*App, error) {
	a := &App{Config: cfg}

	var store corenotify.Store
	if cfg.History.Enabled {
		opts := db.DefaultOpenOptions()
		opts.Logger = logging.Component(logging.ComponentDB)

		database, err := stores.OpenOrRecover(cfg.DataDir, opts)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = database
		store = stores.NewNotifyStore(database, cfg.History.Limit)
	}

	tr, err := i18n.New(cfg.Locale)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load translations: %w", err)
	}

	a.Bus = notify.NewBus(store, logging.Component(logging.ComponentNotify))
	a.Toasts = toast.NewSurface(toastOut, toast.Options{
		Theme:  cfg.Toast.Theme,
		TTL:    cfg.Toast.TTL,
		Max:    cfg.Toast.Max,
		Dedupe: cfg.Toast.Dedupe,
		Color:  toast.IsTerminal(toastOut),
	})
	a.Bus.Subscribe(a.Toasts.Show)

	a.Query = query.NewClient(cfg.Query.Options(), logging.Component(logging.ComponentQuery))
	a.unregister = notifier.New(a.Query, tr, a.Bus, logging.Component(logging.ComponentNotifier)).Register()

	api, err := backoffice.New(cfg.API, logging.Component(logging.ComponentAPI))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create api client: %w", err)
	}
	a.Service = backoffice.NewService(a.Query, api)

	return a, nil
}

// Close stops observing the engine and closes the database.
func (a *App) Close() error {
	if a.unregister != nil {
		a.unregister()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// ShownError marks a request failure that was already shown to the user as
// a toast, so main does not print it again.
type ShownError struct {
	Err error
}

func (e *ShownError) Error() string { return e.Err.Error() }
func (e *ShownError) Unwrap() error { return e.Err }

// IsShown reports whether err was already shown as a toast.
func IsShown(err error) bool {
	var shown *ShownError
	return errors.As(err, &shown)
}

// requestErr marks err as shown when the notifier displayed its message.
// Validation failures stay unmarked so their field details get printed.
func requestErr(err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if apierr.Classify(err) == apierr.KindNormal {
		return &ShownError{Err: err}
	}
	return err
}
