// Package bridge ties translation, authorization and execution together
// behind a single request/result call.
package bridge

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/auth"
	"github.com/koba/cqlbridge/internal/cqlerr"
	"github.com/koba/cqlbridge/internal/executor"
	"github.com/koba/cqlbridge/internal/logging"
	"github.com/koba/cqlbridge/internal/translate"
)

// Request is one statement to translate and optionally execute.
type Request struct {
	// Text is parsed unless Statement is set.
	Text      string
	Statement ast.Statement
	Execute   bool
	Caller    executor.Caller
}

// Result is the outcome of a request. A successful result has Output; a
// failed one has Diagnostic and Category instead.
type Result struct {
	Success    bool
	Output     string
	Diagnostic string
	Category   string
	Warnings   []string
	Operation  string
	Summary    string
	Execution  *executor.Outcome
}

// Options configures a Service. Guard and Coordinator are optional for
// translation; execution requests fail unless both are set.
type Options struct {
	Engine      *translate.Engine
	Parser      translate.Parser
	Guard       *auth.Guard
	Coordinator *executor.Coordinator
	Logger      *zap.Logger
}

// Service handles requests.
type Service struct {
	engine      *translate.Engine
	parser      translate.Parser
	guard       *auth.Guard
	coordinator *executor.Coordinator
	logger      *zap.Logger
}

// New creates a service. A nil engine selects one with default options.
func New(opts Options) *Service {
	engine := opts.Engine
	if engine == nil {
		engine = translate.NewEngine(translate.Options{Logger: opts.Logger})
	}
	parser := opts.Parser
	if parser == nil {
		parser = ast.JSONParser{}
	}
	return &Service{
		engine:      engine,
		parser:      parser,
		guard:       opts.Guard,
		coordinator: opts.Coordinator,
		logger:      logging.OrNop(opts.Logger),
	}
}

// Handle translates the request and, when asked, authorizes and executes
// it. Unexpected panics become InternalError results.
func (s *Service) Handle(ctx context.Context, req Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.AssertionFailedf("panic while handling request: %v", r)
			s.logger.Error("request panicked", zap.Error(err))
			res = failure(res, err)
		}
	}()

	var out translate.Translation
	var stmt ast.Statement
	var err error
	if req.Statement != nil {
		stmt = req.Statement
		out, err = s.engine.Translate(stmt)
	} else {
		out, stmt, err = s.engine.TranslateText(req.Text, s.parser)
	}
	res.Operation = ast.OperationFor(stmt)
	if err != nil {
		return failure(res, err)
	}
	res.Warnings = out.Warnings

	if !req.Execute {
		return success(res, out.Text)
	}
	if s.coordinator == nil {
		return failure(res, errors.New("execution is not configured"))
	}
	if s.guard == nil {
		err := cqlerr.PermissionDeniedf("execution requires a permission authority")
		return failure(res, cqlerr.WithHint(err, "set authority.type to http or sql"))
	}
	authReq := auth.Request{
		Subject:    req.Caller.Subject,
		Credential: req.Caller.Credential,
		Operation:  res.Operation,
	}
	if err := s.guard.Authorize(ctx, authReq); err != nil {
		return failure(res, err)
	}

	outcome := s.coordinator.Execute(ctx, out.Text, req.Caller)
	res.Execution = outcome
	if outcome.Err != nil {
		return failure(res, outcome.Err)
	}
	return success(res, out.Text)
}

func success(res Result, output string) Result {
	res.Success = true
	res.Output = output
	res.Summary = translate.Summary(res.Operation)
	return res
}

func failure(res Result, err error) Result {
	res.Success = false
	res.Output = ""
	res.Diagnostic = cqlerr.Diagnostic(err)
	res.Category = cqlerr.Category(err)
	return res
}
