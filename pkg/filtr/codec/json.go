package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/sambeau/filtr/pkg/filtr/object"
)

var errNotArray = errors.New("expected a non-empty array of objects")

// ReadJSON reads an array of objects. Columns are the keys of the first
// object in document order; keys missing from later objects read as null.
// Nested arrays and objects are kept as compact JSON text.
func ReadJSON(r io.Reader, opts Options) (*object.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	var columns []string
	var rows []map[string]object.Object
	for dec.More() {
		keys, row, err := readJSONObject(dec, opts)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", len(rows), err)
		}
		if columns == nil {
			columns = keys
		}
		rows = append(rows, row)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errNotArray
	}
	return newTable(columns, rows)
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		if want == '[' {
			return errNotArray
		}
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readJSONObject(dec *json.Decoder, opts Options) ([]string, map[string]object.Object, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("not an object")
	}

	keys := []string{}
	row := make(map[string]object.Object)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, err
		}
		v, err := jsonValue(raw, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("key %q: %w", key, err)
		}
		if _, seen := row[key]; !seen {
			keys = append(keys, key)
		}
		row[key] = v
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, nil, err
	}
	return keys, row, nil
}

func jsonValue(raw json.RawMessage, opts Options) (object.Object, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return object.NULL, nil
	}
	switch raw[0] {
	case 'n':
		return object.NULL, nil
	case 't':
		return object.TRUE, nil
	case 'f':
		return object.FALSE, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return InferValue(s, opts.InferDates), nil
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, err
		}
		return &object.String{Value: buf.String()}, nil
	}
	return numberValue(json.Number(raw))
}

func numberValue(n json.Number) (object.Object, error) {
	if i, err := n.Int64(); err == nil {
		return &object.Integer{Value: i}, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, err
	}
	return object.Cleanup(&object.Number{Value: f}), nil
}

// WriteJSON writes an array of objects with keys in column order. Values
// keep their kinds unless opts.JSONStrings is set.
func WriteJSON(w io.Writer, t *object.Table, opts Options) error {
	columns := t.Columns()
	keys := make([][]byte, len(columns))
	for i, c := range columns {
		k, err := json.Marshal(c)
		if err != nil {
			return err
		}
		keys[i] = k
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, c := range columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[j])
			buf.WriteByte(':')
			v, err := json.Marshal(jsonCell(t.Cell(i, c), opts.JSONStrings))
			if err != nil {
				return err
			}
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func jsonCell(v object.Object, stringsOnly bool) any {
	if stringsOnly {
		return cellText(v)
	}
	switch v := v.(type) {
	case *object.Null:
		return nil
	case *object.Boolean:
		return v.Value
	case *object.Integer:
		return v.Value
	case *object.Number:
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
			return object.FormatNumber(v.Value)
		}
		return json.Number(strconv.FormatFloat(v.Value, 'f', -1, 64))
	}
	return v.Inspect()
}
