package suggest

import (
	"context"
	"errors"
	"log/slog"

	inkling "github.com/Paranoid-AF/inkling"
	"github.com/Paranoid-AF/inkling/complete"
	"github.com/Paranoid-AF/inkling/surface"
)

// Configuration errors returned by Activate before anything is attached.
var (
	ErrNoCompleter       = errors.New("suggest: no completer configured")
	ErrNoCredentialCheck = errors.New("suggest: no credential check configured")
)

// Options configures Activate.
type Options struct {
	// Completer fetches suggestions. Wrap it with complete.WithIndicator to
	// show a busy marker.
	Completer complete.Completer
	// CheckCredential runs once before anything is attached. It is
	// required; a non-nil error aborts activation.
	CheckCredential func(ctx context.Context) error
	Logger          *slog.Logger
}

// RequireKey returns a credential check that fails with
// inkling.ErrAuthenticationMissing when key is empty.
func RequireKey(key string) func(context.Context) error {
	return func(context.Context) error {
		if key == "" {
			return inkling.ErrAuthenticationMissing
		}
		return nil
	}
}

// Activate verifies the credential and attaches suggestion handling to doc.
// On failure it logs, attaches nothing and returns the error; the host
// document keeps working without suggestions.
func Activate(ctx context.Context, doc *surface.Document, opts Options) (*Controller, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	switch {
	case opts.Completer == nil:
		log.Error("suggestions disabled", "error", ErrNoCompleter)
		return nil, ErrNoCompleter
	case opts.CheckCredential == nil:
		log.Error("suggestions disabled", "error", ErrNoCredentialCheck)
		return nil, ErrNoCredentialCheck
	}
	if err := opts.CheckCredential(ctx); err != nil {
		log.Error("suggestions disabled", "error", err)
		return nil, err
	}

	ctrl := NewController(ctx, doc, opts.Completer, log)
	doc.AddKeyListener(NewDispatcher(ctrl).Dispatch)
	log.Debug("suggestions attached")
	return ctrl, nil
}
