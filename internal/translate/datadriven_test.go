package translate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"

	"github.com/koba/cqlbridge/internal/ast"
	"github.com/koba/cqlbridge/internal/cqlerr"
)

// TestTranslateDataDriven runs the files under testdata. Each "translate"
// command takes statement text (a JSON AST or a metadata command) and
// prints the CQL followed by one line per warning, or the error category
// and diagnostic.
//
// Arguments:
//
//	limit=<n>         default query limit
//	replication=<cls> replication class
//	factor=<n>        replication factor
//	dc=<name>         datacenter for NetworkTopologyStrategy
func TestTranslateDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "translate":
				engine := NewEngine(engineOptions(t, d))
				out, _, err := engine.TranslateText(d.Input, ast.JSONParser{})
				return formatTranslation(out, err)
			default:
				return fmt.Sprintf("unknown command: %s", d.Cmd)
			}
		})
	})
}

func engineOptions(t *testing.T, d *datadriven.TestData) Options {
	var opts Options
	if d.HasArg("limit") {
		var limit int
		d.ScanArgs(t, "limit", &limit)
		opts.DefaultLimit = int64(limit)
	}
	if d.HasArg("replication") {
		d.ScanArgs(t, "replication", &opts.Replication.Class)
	}
	if d.HasArg("factor") {
		d.ScanArgs(t, "factor", &opts.Replication.Factor)
	}
	if d.HasArg("dc") {
		d.ScanArgs(t, "dc", &opts.Replication.DataCenter)
	}
	return opts
}

func formatTranslation(out Translation, err error) string {
	if err != nil {
		return fmt.Sprintf("error: %s: %s\n", cqlerr.Category(err), cqlerr.Diagnostic(err))
	}
	var b strings.Builder
	b.WriteString(out.Text)
	b.WriteString("\n")
	for _, w := range out.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	return b.String()
}
