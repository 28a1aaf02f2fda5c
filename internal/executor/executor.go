// Package executor runs translated CQL against the store.
//
// The Coordinator decides between single, batch and sequential execution,
// converts store failures into ExecutionError outcomes and notifies the
// registered hooks after every successful execution.
package executor

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/koba/cqlbridge/internal/cqlerr"
	"github.com/koba/cqlbridge/internal/logging"
	"github.com/koba/cqlbridge/internal/metrics"
	"github.com/koba/cqlbridge/internal/schema"
)

// Store executes CQL text.
type Store interface {
	Exec(ctx context.Context, stmt string) (*ResultSet, error)
	ExecBatch(ctx context.Context, stmts []string) error
}

// ResultSet holds the rows returned by a statement.
type ResultSet struct {
	Columns []string
	Rows    []schema.Row
}

// Caller identifies who requested an execution.
type Caller struct {
	Subject    string
	Credential string
}

// Mode is how a piece of text was executed.
type Mode string

const (
	ModeSingle   Mode = "single"
	ModeBatch    Mode = "batch"
	ModeSequence Mode = "sequence"
)

// Outcome is the result of one Execute call.
type Outcome struct {
	ID         string
	Mode       Mode
	Statements []string
	// Result is the result of the last statement executed outside a batch.
	Result   *ResultSet
	Err      error
	Duration time.Duration
}

// Success reports whether every statement executed.
func (o *Outcome) Success() bool { return o.Err == nil }

// Coordinator executes translated text through a Store.
type Coordinator struct {
	store   Store
	hooks   []Hook
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewCoordinator creates a coordinator. Hooks run in order after each
// successful execution.
func NewCoordinator(store Store, logger *zap.Logger, m *metrics.Metrics, hooks ...Hook) *Coordinator {
	return &Coordinator{
		store:   store,
		hooks:   hooks,
		logger:  logging.OrNop(logger),
		metrics: m,
		now:     time.Now,
	}
}

// AddHook registers an additional post-execution hook.
func (c *Coordinator) AddHook(h Hook) {
	c.hooks = append(c.hooks, h)
}

// Execute runs text. Failures are reported in the outcome, never returned
// as panics.
func (c *Coordinator) Execute(ctx context.Context, text string, caller Caller) *Outcome {
	start := c.now()
	out := &Outcome{ID: uuid.NewString()}
	logger := c.logger.With(zap.String("execution_id", out.ID))

	out.Err = c.execute(ctx, text, out)
	out.Duration = c.now().Sub(start)
	c.metrics.ObserveExecution(string(out.Mode), out.Err)

	if out.Err != nil {
		logger.Warn("execution failed",
			zap.String("mode", string(out.Mode)),
			zap.String("category", cqlerr.Category(out.Err)),
			zap.Error(out.Err))
		return out
	}
	logger.Debug("executed",
		zap.String("mode", string(out.Mode)),
		zap.Int("statements", len(out.Statements)),
		zap.Duration("duration", out.Duration))

	ev := Event{
		ID:         out.ID,
		Text:       text,
		Statements: out.Statements,
		Mode:       out.Mode,
		Caller:     caller,
	}
	for _, h := range c.hooks {
		h.AfterExecute(ctx, ev)
	}
	return out
}

func (c *Coordinator) execute(ctx context.Context, text string, out *Outcome) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = cqlerr.Execution(errors.Newf("store panicked: %v", r))
		}
	}()

	stmts, isBatch, err := ExtractBatch(text)
	if err != nil {
		out.Mode = ModeBatch
		return err
	}
	if isBatch {
		out.Mode = ModeBatch
		out.Statements = stmts
		if err := c.store.ExecBatch(ctx, stmts); err != nil {
			return cqlerr.Execution(err)
		}
		return nil
	}

	stmts = SplitStatements(text)
	switch len(stmts) {
	case 0:
		out.Mode = ModeSingle
		return cqlerr.Invalidf("nothing to execute")
	case 1:
		out.Mode = ModeSingle
	default:
		out.Mode = ModeSequence
	}

	for i, stmt := range stmts {
		res, err := c.store.Exec(ctx, stmt)
		if err != nil {
			if out.Mode == ModeSequence {
				err = errors.Wrapf(err, "statement %d of %d", i+1, len(stmts))
			}
			return cqlerr.Execution(err)
		}
		out.Statements = append(out.Statements, stmt)
		out.Result = res
	}
	return nil
}
