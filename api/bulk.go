package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/gcbaptista/go-facet-search/internal/errors"
	"github.com/gcbaptista/go-facet-search/internal/indexing"
)

// errUnsupportedEncoding is returned for a Content-Encoding other than gzip, zstd or identity.
type errUnsupportedEncoding struct {
	encoding string
}

func (e *errUnsupportedEncoding) Error() string {
	return fmt.Sprintf("unsupported content encoding '%s'", e.encoding)
}

// decodeBody returns a reader over the decompressed request body. limit bounds
// the decompressed size; 0 leaves it unbounded.
func decodeBody(r *http.Request, limit int64) (io.ReadCloser, error) {
	var body io.ReadCloser
	switch encoding := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Encoding"))); encoding {
	case "", "identity":
		body = r.Body
	case "gzip":
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, errors.NewValidationError("body", "invalid gzip stream: "+err.Error())
		}
		body = gz
	case "zstd":
		zr, err := zstd.NewReader(r.Body)
		if err != nil {
			return nil, errors.NewValidationError("body", "invalid zstd stream: "+err.Error())
		}
		body = zr.IOReadCloser()
	default:
		return nil, &errUnsupportedEncoding{encoding: encoding}
	}
	if limit <= 0 {
		return body, nil
	}
	return &limitedBody{ReadCloser: body, remaining: limit, limit: limit}, nil
}

// limitedBody fails with *http.MaxBytesError once more than limit bytes were read.
type limitedBody struct {
	io.ReadCloser
	remaining int64
	limit     int64
}

func (l *limitedBody) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, &http.MaxBytesError{Limit: l.limit}
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.ReadCloser.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n + int(l.remaining), &http.MaxBytesError{Limit: l.limit}
	}
	return n, err
}

type bulkAction struct {
	Index  *bulkMeta `json:"index"`
	Delete *bulkMeta `json:"delete"`
}

type bulkMeta struct {
	ID string `json:"_id"`
}

// ParseBulk reads an NDJSON bulk body. Each operation is an action line
// followed, for index actions, by the document source line:
//
//	{"index": {"_id": "1"}}
//	{"brand": "Heineken", "price": 3.5}
//	{"delete": {"_id": "2"}}
//
// An index action without _id gets a generated ID. Blank lines are skipped.
// Only broken framing rejects the whole body; a source that is not a JSON
// object, or a delete without _id, becomes an item that fails on its own.
func ParseBulk(r io.Reader) ([]indexing.Operation, error) {
	reader := bufio.NewReader(r)
	var ops []indexing.Operation
	lineNo := 0

	nextLine := func() ([]byte, bool, error) {
		for {
			line, err := reader.ReadBytes('\n')
			if err != nil && err != io.EOF {
				return nil, false, err
			}
			if len(line) == 0 && err == io.EOF {
				return nil, false, nil
			}
			lineNo++
			line = bytes.TrimSpace(line)
			if len(line) > 0 {
				return line, true, nil
			}
			if err == io.EOF {
				return nil, false, nil
			}
		}
	}

	for {
		line, ok, err := nextLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		var action bulkAction
		if err := json.Unmarshal(line, &action); err != nil {
			return nil, errors.NewValidationError("body", fmt.Sprintf("line %d: malformed action: %v", lineNo, err))
		}

		switch {
		case action.Index != nil && action.Delete != nil:
			return nil, errors.NewValidationError("body", fmt.Sprintf("line %d: action must be either index or delete", lineNo))
		case action.Delete != nil:
			ops = append(ops, indexing.Operation{Kind: indexing.OpDelete, ID: action.Delete.ID})
		case action.Index != nil:
			source, ok, err := nextLine()
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.NewValidationError("body", fmt.Sprintf("line %d: index action is missing its source line", lineNo))
			}
			op := indexing.Operation{Kind: indexing.OpIndex, ID: action.Index.ID}
			if err := json.Unmarshal(source, &op.Fields); err != nil || op.Fields == nil {
				op.Fields = nil
				op.Err = errors.NewValidationError("_source", fmt.Sprintf("line %d: source must be a JSON object", lineNo))
			}
			ops = append(ops, op)
		default:
			return nil, errors.NewValidationError("body", fmt.Sprintf("line %d: unknown action", lineNo))
		}
	}
	return ops, nil
}
