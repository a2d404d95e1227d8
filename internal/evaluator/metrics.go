package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
)

// Table is a JSON object of numbers with its key order preserved.
type Table struct {
	Keys   []string
	Values map[string]float64
}

func newTable() Table {
	return Table{Values: make(map[string]float64)}
}

// Get returns the value stored under key.
func (t Table) Get(key string) (float64, bool) {
	v, ok := t.Values[key]
	return v, ok
}

func (t *Table) set(key string, v float64) {
	if _, ok := t.Values[key]; !ok {
		t.Keys = append(t.Keys, key)
	}
	t.Values[key] = v
}

// ClassTables maps class names to tables, preserving class order.
type ClassTables struct {
	Classes []string
	ByClass map[string]Table
}

func newClassTables() ClassTables {
	return ClassTables{ByClass: make(map[string]Table)}
}

// Get returns the table for class.
func (c ClassTables) Get(class string) (Table, bool) {
	t, ok := c.ByClass[class]
	return t, ok
}

// MetricsSummary is the part of the evaluator's summary file consumed by
// the report: per-class AP by distance threshold and per-class
// true-positive errors. Key order follows the file.
type MetricsSummary struct {
	LabelAPs      ClassTables
	LabelTPErrors ClassTables
	MeanAP        float64
	NDScore       float64
}

// DecodeMetrics parses a metrics summary. The evaluator writes NaN and
// Infinity as bare tokens, which are accepted here.
func DecodeMetrics(data []byte) (*MetricsSummary, error) {
	dec := json.NewDecoder(bytes.NewReader(quoteNonFinite(data)))
	m := &MetricsSummary{
		LabelAPs:      newClassTables(),
		LabelTPErrors: newClassTables(),
		MeanAP:        math.NaN(),
		NDScore:       math.NaN(),
	}
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}
	seenAPs, seenErrs := false, false
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		switch key {
		case "label_aps":
			if m.LabelAPs, err = decodeClassTables(dec); err != nil {
				return nil, fmt.Errorf("label_aps: %w", err)
			}
			seenAPs = true
		case "label_tp_errors":
			if m.LabelTPErrors, err = decodeClassTables(dec); err != nil {
				return nil, fmt.Errorf("label_tp_errors: %w", err)
			}
			seenErrs = true
		case "mean_ap":
			if m.MeanAP, err = decodeNumber(dec); err != nil {
				return nil, fmt.Errorf("mean_ap: %w", err)
			}
		case "nd_score":
			if m.NDScore, err = decodeNumber(dec); err != nil {
				return nil, fmt.Errorf("nd_score: %w", err)
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	if !seenAPs {
		return nil, fmt.Errorf("missing label_aps")
	}
	if !seenErrs {
		return nil, fmt.Errorf("missing label_tp_errors")
	}
	return m, nil
}

func decodeClassTables(dec *json.Decoder) (ClassTables, error) {
	out := newClassTables()
	if err := expectDelim(dec, '{'); err != nil {
		return out, err
	}
	for dec.More() {
		class, err := readKey(dec)
		if err != nil {
			return out, err
		}
		t, err := decodeTable(dec)
		if err != nil {
			return out, fmt.Errorf("%s: %w", class, err)
		}
		if _, ok := out.ByClass[class]; !ok {
			out.Classes = append(out.Classes, class)
		}
		out.ByClass[class] = t
	}
	return out, expectDelim(dec, '}')
}

func decodeTable(dec *json.Decoder) (Table, error) {
	t := newTable()
	if err := expectDelim(dec, '{'); err != nil {
		return t, err
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return t, err
		}
		v, err := decodeNumber(dec)
		if err != nil {
			return t, fmt.Errorf("%s: %w", key, err)
		}
		t.set(key, v)
	}
	return t, expectDelim(dec, '}')
}

func decodeNumber(dec *json.Decoder) (float64, error) {
	tok, err := dec.Token()
	if err != nil {
		return 0, err
	}
	switch v := tok.(type) {
	case float64:
		return v, nil
	case nil:
		return math.NaN(), nil
	case string:
		switch v {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
	}
	return 0, fmt.Errorf("expected number, got %v", tok)
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return fmt.Errorf("unexpected end of input, want %q", want)
	}
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

// quoteNonFinite rewrites bare NaN, Infinity and -Infinity tokens outside
// string literals as quoted strings so encoding/json can tokenize them.
func quoteNonFinite(data []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(data))
	inString, escaped := false, false
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			out.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			out.WriteByte(c)
			continue
		}
		matched := false
		for _, word := range []string{"NaN", "-Infinity", "Infinity"} {
			if bytes.HasPrefix(data[i:], []byte(word)) {
				out.WriteByte('"')
				out.WriteString(word)
				out.WriteByte('"')
				i += len(word) - 1
				matched = true
				break
			}
		}
		if !matched {
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}
