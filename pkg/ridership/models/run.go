package models

import "time"

// LoadRun is the history entry of one pipeline load, successful or not.
type LoadRun struct {
	ID            string     `json:"id"`
	Source        SourceKind `json:"source"`
	SourceName    string     `json:"sourceName"`
	Schema        SchemaKind `json:"schema"`
	Policy        NullPolicy `json:"policy"`
	Digest        string     `json:"digest"`
	Encoding      string     `json:"encoding,omitempty"`
	InputRows     int        `json:"inputRows"`
	RetainedRows  int        `json:"retainedRows"`
	DroppedRows   int        `json:"droppedRows"`
	ZeroFilled    int        `json:"zeroFilled"`
	DistinctLines int        `json:"distinctLines"`
	Cached        bool       `json:"cached"`
	ErrorKind     string     `json:"errorKind,omitempty"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	DurationMS    int64      `json:"durationMs"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Succeeded reports whether the load produced a table.
func (r LoadRun) Succeeded() bool {
	return r.ErrorKind == ""
}
