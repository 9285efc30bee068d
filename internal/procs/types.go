package procs

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	bytesPerMB = 1024 * 1024

	// NotAvailable is how an unavailable Field, or an empty command line, is
	// rendered to viewers.
	NotAvailable = "N/A"

	createTimeLayout = "2006-01-02 15:04:05"
)

// Summary is one row of the process_list feed.
type Summary struct {
	PID           int32   `json:"pid"`
	Name          string  `json:"name"`
	Status        Status  `json:"status"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryMB      float64 `json:"memory_mb"`
	Threads       int32   `json:"num_threads"`
	CreateTime    string  `json:"create_time"`
	Username      string  `json:"username,omitempty"`
}

// Field is an optional detail attribute: either a value, or unavailable
// because the OS refused or failed to report it.
type Field[T any] struct {
	Value T
	Valid bool
}

func Available[T any](v T) Field[T] {
	return Field[T]{Value: v, Valid: true}
}

// fieldOf adapts a (value, error) accessor into a Field.
func fieldOf[T any](v T, err error) Field[T] {
	if err != nil {
		return Field[T]{}
	}
	return Available(v)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(f.Value)
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte(`"`+NotAvailable+`"`)) || bytes.Equal(data, []byte("null")) {
		*f = Field[T]{}
		return nil
	}
	if err := json.Unmarshal(data, &f.Value); err != nil {
		return err
	}
	f.Valid = true
	return nil
}

type CPUTimes struct {
	User   float64 `json:"user"`
	System float64 `json:"system"`
}

// OpenFiles lists the first open file paths and how many were left out.
type OpenFiles struct {
	Paths []string `json:"paths"`
	More  int      `json:"more"`
}

// Detail is the process_details payload: a Summary plus attributes that are
// each fetched, and may fail, on their own.
type Detail struct {
	Summary
	ParentPID   Field[int32]     `json:"ppid"`
	Nice        Field[int32]     `json:"nice"`
	Priority    Field[int32]     `json:"priority"`
	Terminal    Field[string]    `json:"terminal"`
	Exe         Field[string]    `json:"exe"`
	Cwd         Field[string]    `json:"cwd"`
	IORead      Field[uint64]    `json:"io_read_bytes"`
	IOWrite     Field[uint64]    `json:"io_write_bytes"`
	CPUTimes    Field[CPUTimes]  `json:"cpu_times"`
	Connections Field[int]       `json:"connections"`
	OpenFiles   Field[OpenFiles] `json:"open_files"`
	Cmdline     string           `json:"cmdline"`
}

// ActionResult reports the outcome of a terminate, suspend or resume.
type ActionResult struct {
	Success bool   `json:"success"`
	PID     int32  `json:"pid"`
	Name    string `json:"name,omitempty"`
	Error   string `json:"error,omitempty"`
}

func formatCreateTime(ms int64) string {
	return time.UnixMilli(ms).Local().Format(createTimeLayout)
}
