package query

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/pkg/errors"

	"github.com/vito/tern/pkg/def"
	"github.com/vito/tern/pkg/infer"
)

// NotFound is the error code for paths that lead nowhere.
const NotFound = jrpc2.Code(-32001)

// TimedOut is the error code for queries abandoned by the analysis
// deadline.
const TimedOut = jrpc2.Code(-32002)

// PathParams selects a value. Depth only applies to tern.type.
type PathParams struct {
	Path  string `json:"path"`
	Depth int    `json:"depth,omitempty"`
}

// CompleteParams selects a value and a property prefix.
type CompleteParams struct {
	Path   string `json:"path"`
	Prefix string `json:"prefix,omitempty"`
}

// DefineParams carries an inline environment document.
type DefineParams struct {
	Doc json.RawMessage `json:"doc"`
}

// TypeResult is the answer to tern.type.
type TypeResult struct {
	Type string `json:"type"`
}

// DefineResult is the answer to tern.define.
type DefineResult struct {
	Origin string `json:"origin"`
}

type service struct {
	engine *Engine
	logger *slog.Logger
}

// Handlers exposes the engine as JSON-RPC methods.
func Handlers(engine *Engine, logger *slog.Logger) handler.Map {
	s := &service{engine: engine, logger: logger}
	return handler.Map{
		"tern.type":     s.handleType,
		"tern.hover":    s.handleHover,
		"tern.complete": s.handleComplete,
		"tern.define":   s.handleDefine,
	}
}

// NewServer creates a server for the engine. Requests are handled one at
// a time since they all contend for the same analysis.
func NewServer(engine *Engine, logger *slog.Logger) *jrpc2.Server {
	return jrpc2.NewServer(Handlers(engine, logger), &jrpc2.ServerOptions{
		Concurrency: 1,
		Logger:      func(text string) { logger.Debug(text) },
	})
}

func (s *service) handleType(ctx context.Context, req *jrpc2.Request) (any, error) {
	var params PathParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	desc, err := s.engine.TypeOf(ctx, params.Path, params.Depth)
	if err != nil {
		return nil, s.toRPC(req, err)
	}
	return TypeResult{Type: desc}, nil
}

func (s *service) handleHover(ctx context.Context, req *jrpc2.Request) (any, error) {
	var params PathParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	h, err := s.engine.Hover(ctx, params.Path)
	if err != nil {
		return nil, s.toRPC(req, err)
	}
	return h, nil
}

func (s *service) handleComplete(ctx context.Context, req *jrpc2.Request) (any, error) {
	var params CompleteParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	completions, err := s.engine.Complete(ctx, params.Path, params.Prefix)
	if err != nil {
		return nil, s.toRPC(req, err)
	}
	if completions == nil {
		completions = []Completion{}
	}
	return completions, nil
}

func (s *service) handleDefine(ctx context.Context, req *jrpc2.Request) (any, error) {
	var params DefineParams
	if err := unmarshalParams(req, &params); err != nil {
		return nil, err
	}
	if len(params.Doc) == 0 {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing doc")
	}
	doc, err := def.DecodeJSON(bytes.NewReader(params.Doc))
	if err != nil {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "decode doc: %v", err)
	}
	origin, err := s.engine.Define(ctx, doc)
	if err != nil {
		return nil, s.toRPC(req, err)
	}
	s.logger.InfoContext(ctx, "defined environment", "origin", origin)
	return DefineResult{Origin: origin}, nil
}

func unmarshalParams(req *jrpc2.Request, v any) error {
	if !req.HasParams() {
		return jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}
	if err := req.UnmarshalParams(v); err != nil {
		return jrpc2.Errorf(jrpc2.InvalidParams, "%v", err)
	}
	return nil
}

func (s *service) toRPC(req *jrpc2.Request, err error) error {
	var specErr *infer.SpecError
	switch {
	case errors.Is(err, ErrNotFound):
		return jrpc2.Errorf(NotFound, "%v", err)
	case errors.Is(err, infer.ErrTimedOut):
		s.logger.Warn("query timed out", "method", req.Method())
		return jrpc2.Errorf(TimedOut, "%v", err)
	case errors.As(err, &specErr):
		return jrpc2.Errorf(jrpc2.InvalidParams, "%v", err)
	}
	s.logger.Error("query failed", "method", req.Method(), "error", err)
	return err
}
