package executor

import (
	"regexp"
	"strings"

	"github.com/koba/cqlbridge/internal/cqlerr"
)

// Batch markers only count where a statement starts, so quoted data that
// happens to spell them is left alone.
var (
	beginBatchPattern = regexp.MustCompile(`(?i)^BEGIN\s+(?:UNLOGGED\s+|COUNTER\s+)?BATCH\b`)
	applyBatchPattern = regexp.MustCompile(`(?i)^APPLY\s+BATCH$`)
)

// ExtractBatch returns the statements enclosed in a BEGIN BATCH ... APPLY
// BATCH block. The boolean is false when text is not a batch. A batch
// without statements is an error.
func ExtractBatch(text string) ([]string, bool, error) {
	pieces := SplitStatements(text)
	if len(pieces) == 0 {
		return nil, false, nil
	}
	begin := beginBatchPattern.FindStringIndex(pieces[0])
	if begin == nil {
		return nil, false, nil
	}

	// The first inner statement shares a piece with BEGIN BATCH.
	body := pieces[1:]
	if first := strings.TrimSpace(pieces[0][begin[1]:]); first != "" {
		body = append([]string{first}, body...)
	}
	for i, stmt := range body {
		if !applyBatchPattern.MatchString(stmt) {
			continue
		}
		if i+1 < len(body) {
			return nil, true, cqlerr.Invalidf("statement after APPLY BATCH: %s", body[i+1])
		}
		if i == 0 {
			return nil, true, cqlerr.Invalidf("batch contains no statements")
		}
		return body[:i], true, nil
	}
	return nil, true, cqlerr.Invalidf("batch is missing APPLY BATCH")
}

// SplitStatements splits text on statement terminators outside quoted
// strings and identifiers. Line comments (-- and //) are dropped.
func SplitStatements(text string) []string {
	var stmts []string
	var cur strings.Builder
	inSingle, inDouble := false, false

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			stmts = append(stmts, s)
		}
		cur.Reset()
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inSingle {
			cur.WriteByte(c)
			if c == '\'' {
				if i+1 < len(text) && text[i+1] == '\'' {
					cur.WriteByte(text[i+1])
					i++
				} else {
					inSingle = false
				}
			}
			continue
		}
		if inDouble {
			cur.WriteByte(c)
			if c == '"' {
				inDouble = false
			}
			continue
		}

		switch {
		case c == '\'':
			inSingle = true
			cur.WriteByte(c)
		case c == '"':
			inDouble = true
			cur.WriteByte(c)
		case (c == '-' || c == '/') && i+1 < len(text) && text[i+1] == c:
			for i < len(text) && text[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return stmts
}
