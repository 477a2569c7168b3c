// Package reporting forwards unexpected internal errors to Sentry. With no
// DSN configured every call is a no-op.
package reporting

import (
	"time"

	"github.com/getsentry/sentry-go"
)

var (
	sentryInit       = sentry.Init
	captureException = func(err error) { sentry.CaptureException(err) }
	flush            = func(d time.Duration) { sentry.Flush(d) }
	capturePanic     = func(rec any, stack []byte) {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetExtra("panic", rec)
			scope.SetExtra("stack", string(stack))
			sentry.CaptureMessage("panic in request")
		})
	}
)

// Init configures the global Sentry client. The returned func flushes
// pending events and should be deferred by main.
func Init(dsn, environment, release string) (func(), error) {
	if dsn == "" {
		return func() {}, nil
	}

	err := sentryInit(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return func() {}, err
	}

	return func() { flush(2 * time.Second) }, nil
}

// CaptureError reports err. Nil is ignored.
func CaptureError(err error) {
	if err == nil {
		return
	}
	captureException(err)
}

// CapturePanic reports a recovered panic with its stack.
func CapturePanic(rec any, stack []byte) {
	capturePanic(rec, stack)
}
