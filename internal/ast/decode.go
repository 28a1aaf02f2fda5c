package ast

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/koba/cqlbridge/internal/cqlerr"
)

type envelope struct {
	Kind string `json:"kind"`
}

// Decode decodes one JSON-encoded statement. The document is an object with
// a "kind" member naming the statement kind plus the kind's fields, or an
// array holding exactly one such object.
func Decode(data []byte) (Statement, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var docs []json.RawMessage
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, errors.Wrap(err, "failed to decode statement list")
		}
		if len(docs) != 1 {
			return nil, cqlerr.Invalidf("expected exactly one statement, got %d", len(docs))
		}
		data = docs[0]
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.Wrap(err, "failed to decode statement envelope")
	}
	if env.Kind == "" {
		return nil, cqlerr.Invalidf("statement has no kind")
	}
	kind, ok := ParseKind(strings.ToLower(env.Kind))
	if !ok {
		return nil, cqlerr.Invalidf("unknown statement kind %q", env.Kind)
	}
	stmt, _ := New(kind)

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(stmt); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s statement", kind)
	}
	return stmt, nil
}

// Encode encodes stmt in the form accepted by Decode.
func Encode(stmt Statement) ([]byte, error) {
	body, err := json.Marshal(stmt)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	kind, err := json.Marshal(stmt.Kind().String())
	if err != nil {
		return nil, err
	}
	fields["kind"] = kind
	return json.Marshal(fields)
}

// JSONParser parses statement text that is itself a JSON-encoded AST, as
// produced by an external parser.
type JSONParser struct{}

// Parse implements the parser contract used by the translation engine.
func (JSONParser) Parse(text string) (Statement, error) {
	return Decode([]byte(text))
}
