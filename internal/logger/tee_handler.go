package logger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// TeeHandler writes each record to the local handler and mirrors it to a
// remote sink. The two sides filter levels independently, so the remote
// sink can be quieter than stdout.
type TeeHandler struct {
	local  slog.Handler
	remote slog.Handler
}

// NewTeeHandler returns local unchanged when there is no remote sink.
func NewTeeHandler(local, remote slog.Handler) slog.Handler {
	if remote == nil {
		return local
	}
	return &TeeHandler{local: local, remote: remote}
}

func (h *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.local.Enabled(ctx, level) || h.remote.Enabled(ctx, level)
}

// Handle writes locally first. A remote failure is reported but never keeps
// the record off stdout.
func (h *TeeHandler) Handle(ctx context.Context, r slog.Record) error {
	var localErr, remoteErr error
	if h.local.Enabled(ctx, r.Level) {
		localErr = h.local.Handle(ctx, r)
	}
	if h.remote.Enabled(ctx, r.Level) {
		if err := h.remote.Handle(ctx, r.Clone()); err != nil {
			remoteErr = fmt.Errorf("remote log sink: %w", err)
		}
	}
	return errors.Join(localErr, remoteErr)
}

func (h *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TeeHandler{local: h.local.WithAttrs(attrs), remote: h.remote.WithAttrs(attrs)}
}

func (h *TeeHandler) WithGroup(name string) slog.Handler {
	return &TeeHandler{local: h.local.WithGroup(name), remote: h.remote.WithGroup(name)}
}
