package app

import (
	"context"

	"github.com/vk/caniput/internal/call"
	"github.com/vk/caniput/internal/ctxlog"
	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/idl"
	"github.com/vk/caniput/internal/ingest"
	"github.com/vk/caniput/internal/value"
)

// ParseLiteral parses a value written in the given syntax.
func ParseLiteral(literal string, syntax Syntax) (value.Value, error) {
	switch syntax {
	case SyntaxHCL:
		return value.ParseHCL(literal)
	case SyntaxCandid, "":
		parsed, err := idl.ParseValue(literal)
		if err != nil {
			return nil, errs.Codec("parse value", err)
		}
		return value.FromIDL(parsed)
	}
	return nil, errs.Errorf(errs.KindCodec, "parse value", "unknown syntax %q", syntax)
}

// PutValue parses literal and puts it at putPath.
func (a *App) PutValue(ctx context.Context, putPath, literal string, syntax Syntax) (call.PutOutcome, error) {
	v, err := ParseLiteral(literal, syntax)
	if err != nil {
		return call.PutOutcome{}, err
	}
	return a.put(ctx, putPath, v)
}

// PutText puts text, verbatim, at putPath.
func (a *App) PutText(ctx context.Context, putPath, text string) (call.PutOutcome, error) {
	return a.put(ctx, putPath, value.Text(text))
}

// PutFile ingests fsPath and puts the resulting file tree at putPath.
func (a *App) PutFile(ctx context.Context, putPath, fsPath string, sortEntries bool) (call.PutOutcome, error) {
	ctx = a.context(ctx)
	f, err := ingest.IngestAsync(ctx, fsPath, ingest.Options{SortEntries: sortEntries})
	if err != nil {
		return call.PutOutcome{}, err
	}
	return a.put(ctx, putPath, value.FileValue{File: f})
}

func (a *App) put(ctx context.Context, putPath string, v value.Value) (call.PutOutcome, error) {
	ctx = a.context(ctx)
	logger := ctxlog.FromContext(ctx)
	if logger.Enabled(ctx, LevelTrace) {
		logger.Log(ctx, LevelTrace, "Value to put.", "path", putPath, "value", value.Format(v))
	}

	caller, err := a.connect(ctx)
	if err != nil {
		return call.PutOutcome{}, err
	}
	out, err := caller.Put(ctx, a.config.Username, a.config.PathSegments(putPath), []value.Value{v})
	if err != nil {
		logger.Error("Put failed.", "path", putPath, "elapsed", out.Elapsed, "error", err)
		return out, err
	}
	if !out.Stored {
		logger.Error("Failure to put.", "path", putPath, "elapsed", out.Elapsed)
	}
	return out, nil
}
