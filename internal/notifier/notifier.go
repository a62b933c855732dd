// Package notifier turns settled reads and writes into user-facing toasts.
//
// It observes the query engine's caches and, for each settled outcome,
// decides whether to show a toast and what it should say. It never changes
// what the original caller receives.
package notifier

import (
	"strings"

	"github.com/colonyops/backoffice/internal/core/apierr"
	"github.com/colonyops/backoffice/internal/core/query"
	"github.com/rs/zerolog"
)

// ValidationMessage is shown for any read that failed structured validation.
// Field details are not included.
const ValidationMessage = "❌ Validation error"

// Translation keys used to compose write outcome messages.
const (
	KeyEvent     = "EVENT"
	KeySucceeded = "RESULT.SUCCEEDED"
	KeyFailed    = "RESULT.FAILED"

	resourcePrefix = "RESOURCE."
	actionPrefix   = "ACTION."
)

// Toaster displays a transient notification. Calls are fire-and-forget.
type Toaster interface {
	Success(text string)
	Error(text string)
}

// Translator renders a translation key with named placeholders.
type Translator interface {
	T(key string, vars map[string]string) string
}

// ToastContext is the metadata a caller attaches to a write to describe the
// business entity and action it affects.
type ToastContext struct {
	Resource string
	Action   string
}

// Notifier observes a query.Client and emits toasts.
type Notifier struct {
	client  *query.Client
	tr      Translator
	toaster Toaster
	logger  zerolog.Logger
}

// New creates a notifier for client. Call Register to start observing.
func New(client *query.Client, tr Translator, toaster Toaster, logger zerolog.Logger) *Notifier {
	return &Notifier{
		client:  client,
		tr:      tr,
		toaster: toaster,
		logger:  logger,
	}
}

// Register subscribes to the client's query and mutation caches. The returned
// function removes both subscriptions and may be called more than once.
func (n *Notifier) Register() (unregister func()) {
	unsubQueries := n.client.QueryCache().Subscribe(n.HandleQueryEvent)
	unsubMutations := n.client.MutationCache().Subscribe(n.HandleMutationEvent)

	return func() {
		unsubQueries()
		unsubMutations()
	}
}

// HandleQueryEvent shows at most one error toast for a failed read.
// Successful reads are silent.
func (n *Notifier) HandleQueryEvent(e query.QueryEvent) {
	if e.Err == nil {
		return
	}

	switch apierr.Classify(e.Err) {
	case apierr.KindValidation:
		n.logger.Debug().Err(e.Err).Str("query_key", e.Key.String()).Msg("read failed validation")
		n.toaster.Error(ValidationMessage)
	case apierr.KindUnusable:
		n.logger.Debug().Err(e.Err).Str("query_key", e.Key.String()).Msg("read failed without usable message")
	default:
		msg, _ := apierr.Message(e.Err)
		n.toaster.Error(msg)
	}
}

// HandleMutationEvent shows one toast per settled write. Successes are always
// announced. Failures are announced only when the write carried a well-formed
// ToastContext and the error has a message.
func (n *Notifier) HandleMutationEvent(e query.MutationEvent) {
	tc, ok := toastContext(e.Context)

	if e.Err == nil {
		n.toaster.Success(n.compose(tc, KeySucceeded))
		return
	}

	if !ok {
		n.logger.Debug().Err(e.Err).Str("mutation_id", e.ID).Msg("write failed without toast context")
		return
	}
	if _, hasMsg := apierr.Message(e.Err); !hasMsg {
		n.logger.Debug().Err(e.Err).Str("mutation_id", e.ID).Msg("write failed without message")
		return
	}

	n.toaster.Error(n.compose(tc, KeyFailed))
}

// compose renders "Action <result> <action> <resource>" when both names are
// known, otherwise the bare result phrase without its trailing colon.
func (n *Notifier) compose(tc ToastContext, resultKey string) string {
	if tc.Resource != "" && tc.Action != "" {
		return n.tr.T(KeyEvent, map[string]string{
			"resource": n.tr.T(resourcePrefix+tc.Resource, nil),
			"action":   n.tr.T(actionPrefix+tc.Action, nil),
			"result":   n.tr.T(resultKey, nil),
		})
	}
	return strings.TrimSuffix(strings.TrimSpace(n.tr.T(resultKey, nil)), ":")
}

// toastContext accepts a ToastContext value or a non-nil pointer to one.
// Anything else is treated as missing.
func toastContext(v any) (ToastContext, bool) {
	switch tc := v.(type) {
	case ToastContext:
		return tc, true
	case *ToastContext:
		if tc == nil {
			return ToastContext{}, false
		}
		return *tc, true
	default:
		return ToastContext{}, false
	}
}
