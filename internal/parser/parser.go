package parser

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mickamy/qbplan/internal/model"
)

// Format names an input encoding for PLAN_TABLE rows.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// columns maps every accepted spelling of a column onto its PLAN_TABLE name.
var columns = map[string]string{
	"qblockno":    "QBLOCKNO",
	"query_block": "QBLOCKNO",
	"planno":      "PLANNO",
	"plan_step":   "PLANNO",
	"qblock_type": "QBLOCK_TYPE",
	"block_type":  "QBLOCK_TYPE",
	"method":      "METHOD",
	"tname":       "TNAME",
	"table_name":  "TNAME",
	"table_type":  "TABLE_TYPE",
}

// FormatFromPath infers the input format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// Parse reads PLAN_TABLE rows in the given format.
func Parse(r io.Reader, format Format) ([]model.ExplainRow, error) {
	switch format {
	case FormatJSON, "":
		return ParseJSON(r)
	case FormatCSV:
		return ParseCSV(r)
	default:
		return nil, fmt.Errorf("parser: unsupported format %q", format)
	}
}

// ParseJSON reads PLAN_TABLE rows from a JSON document. The rows may be a bare array or
// sit under a "PLAN_TABLE" or "rows" key.
func ParseJSON(r io.Reader) ([]model.ExplainRow, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode explain json: %w", err)
	}

	entries, err := pickRows(payload)
	if err != nil {
		return nil, err
	}

	rows := make([]model.ExplainRow, 0, len(entries))
	for i, entry := range entries {
		obj, err := asObject(entry)
		if err != nil {
			return nil, fmt.Errorf("explain json: row %d: %w", i, err)
		}
		row, err := parseRow(normalize(obj))
		if err != nil {
			return nil, fmt.Errorf("explain json: row %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseCSV reads PLAN_TABLE rows from CSV with a header line naming the columns.
func ParseCSV(r io.Reader) ([]model.ExplainRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("explain csv: missing header")
		}
		return nil, fmt.Errorf("explain csv: read header: %w", err)
	}

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = canonical(h)
	}

	var rows []model.ExplainRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("explain csv: line %d: %w", line, err)
		}
		data := map[string]any{}
		for i, value := range record {
			if i < len(names) && names[i] != "" {
				data[names[i]] = value
			}
		}
		row, err := parseRow(data)
		if err != nil {
			return nil, fmt.Errorf("explain csv: line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// MarshalRows encodes rows as an indented {"PLAN_TABLE": [...]} document.
func MarshalRows(rows []model.ExplainRow) ([]byte, error) {
	if rows == nil {
		rows = []model.ExplainRow{}
	}
	payload, err := json.MarshalIndent(map[string][]model.ExplainRow{"PLAN_TABLE": rows}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode explain json: %w", err)
	}
	return append(payload, '\n'), nil
}

func pickRows(payload any) ([]any, error) {
	switch v := payload.(type) {
	case []any:
		return v, nil
	case map[string]any:
		for k, val := range v {
			switch strings.ToLower(k) {
			case "plan_table", "rows":
				rows, ok := val.([]any)
				if !ok {
					return nil, fmt.Errorf("explain json: %s must be an array, got %T", k, val)
				}
				return rows, nil
			}
		}
		return nil, errors.New("explain json: missing PLAN_TABLE rows")
	default:
		return nil, fmt.Errorf("explain json: unexpected top-level type %T", payload)
	}
}

func parseRow(data map[string]any) (model.ExplainRow, error) {
	var row model.ExplainRow
	var err error
	if row.QueryBlock, err = requireInt(data, "QBLOCKNO"); err != nil {
		return row, err
	}
	if row.PlanStep, err = requireInt(data, "PLANNO"); err != nil {
		return row, err
	}
	if row.Method, err = requireInt(data, "METHOD"); err != nil {
		return row, err
	}
	row.BlockType = strings.TrimSpace(asString(data["QBLOCK_TYPE"]))
	row.TableName = strings.TrimSpace(asString(data["TNAME"]))
	row.TableType = strings.TrimSpace(asString(data["TABLE_TYPE"]))
	return row, nil
}

func requireInt(data map[string]any, key string) (int, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return 0, fmt.Errorf("missing %s", key)
	}
	n, err := asInt(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func normalize(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if name := canonical(k); name != "" {
			out[name] = v
		}
	}
	return out
}

func canonical(column string) string {
	return columns[strings.ToLower(strings.TrimSpace(column))]
}

func asObject(val any) (map[string]any, error) {
	if val == nil {
		return nil, errors.New("nil object")
	}
	obj, ok := val.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", val)
	}
	return obj, nil
}

func asString(val any) string {
	if val == nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func asInt(val any) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int(v), nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, err
		}
		return int(i), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("unexpected type %T", val)
	}
}
