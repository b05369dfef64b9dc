package models

// RawTable is the decoded CSV with its original headers.
type RawTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Preview returns a copy holding at most n rows.
func (t *RawTable) Preview(n int) RawTable {
	if n > len(t.Rows) {
		n = len(t.Rows)
	}
	if n < 0 {
		n = 0
	}
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = append([]string(nil), t.Rows[i]...)
	}
	return RawTable{
		Headers: append([]string(nil), t.Headers...),
		Rows:    rows,
	}
}

// LoadReport summarizes what the cleaning stages did to one input.
type LoadReport struct {
	Encoding         string         `json:"encoding"`
	InputRows        int            `json:"inputRows"`
	CoercionFailures map[string]int `json:"coercionFailures"`
	DroppedRows      int            `json:"droppedRows"`
	ZeroFilled       int            `json:"zeroFilled"`
	RetainedRows     int            `json:"retainedRows"`
	DistinctLines    int            `json:"distinctLines"`
}

// StationTable is the cleaned, colored table ready for view resolution.
// It is never mutated after construction.
type StationTable struct {
	Variant Variant         `json:"-"`
	Records []StationRecord `json:"records"`
	// Lines holds the distinct non-null line values, sorted ascending.
	Lines   []string   `json:"lines"`
	Preview RawTable   `json:"preview"`
	Report  LoadReport `json:"report"`
}
