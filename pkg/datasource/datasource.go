package datasource

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
)

// Strategy selects how rows are handed out across calls to Next.
type Strategy string

const (
	StrategySequential Strategy = "sequential"
	StrategyRandom     Strategy = "random"
	StrategyCycle      Strategy = "cycle"
)

// Table is an immutable, loaded row set shared by every caller of Next.
type Table struct {
	rows     []map[string]string
	strategy Strategy
	index    atomic.Uint64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Load reads path (CSV or JSON, per format) into an immutable row table
// using strategy for subsequent Next calls.
func Load(path, format string, strategy Strategy) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data file %q: %w", path, err)
	}

	var rows []map[string]string
	switch format {
	case "csv":
		rows, err = parseCSV(data)
	case "json":
		rows, err = parseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported data file format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing data file %q: %w", path, err)
	}

	return &Table{
		rows:     rows,
		strategy: strategy,
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}, nil
}

func parseCSV(data []byte) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseJSON(data []byte) ([]map[string]string, error) {
	var raw []map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(raw))
	for _, r := range raw {
		row := make(map[string]string, len(r))
		for k, v := range r {
			row[k] = stringifyJSONValue(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringifyJSONValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Next returns one row per the table's strategy. Sequential stops at
// the end of the table (ok=false); cycle wraps unboundedly; random
// picks uniformly and never exhausts.
func (t *Table) Next() (map[string]string, bool) {
	if len(t.rows) == 0 {
		return nil, false
	}

	switch t.strategy {
	case StrategyRandom:
		t.rngMu.Lock()
		i := t.rng.Intn(len(t.rows))
		t.rngMu.Unlock()
		return t.rows[i], true

	case StrategyCycle:
		i := t.index.Add(1) - 1
		return t.rows[int(i)%len(t.rows)], true

	default: // StrategySequential
		i := t.index.Add(1) - 1
		if int(i) >= len(t.rows) {
			return nil, false
		}
		return t.rows[i], true
	}
}

// Len returns the number of rows loaded.
func (t *Table) Len() int {
	return len(t.rows)
}
