package report

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	corereport "github.com/kilianp07/evrptw/core/report"
)

// JSONLConfig configures the rotating JSONL sink. Sizes are in megabytes,
// ages in days.
type JSONLConfig struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// JSONLSink stores one record per line with automatic rotation.
type JSONLSink struct {
	mu   sync.Mutex
	lj   *lumberjack.Logger
	path string
}

// NewJSONLSink creates the sink, making the parent directory if needed.
func NewJSONLSink(cfg JSONLConfig) (*JSONLSink, error) {
	if cfg.Path == "" {
		cfg.Path = "results.jsonl"
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	}
	return &JSONLSink{lj: lj, path: cfg.Path}, nil
}

// Write encodes rec as a single line.
func (s *JSONLSink) Write(_ context.Context, rec corereport.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.NewEncoder(s.lj).Encode(rec)
}

// ReadAll returns the records of the current file and its rotated backups,
// skipping lines that fail to decode.
func (s *JSONLSink) ReadAll() ([]corereport.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files, err := filepath.Glob(s.path + "*")
	if err != nil {
		return nil, err
	}
	var res []corereport.Record
	for _, f := range files {
		file, err := os.Open(f)
		if err != nil {
			continue
		}
		sc := bufio.NewScanner(file)
		sc.Buffer(make([]byte, 64*1024), 4<<20)
		for sc.Scan() {
			var r corereport.Record
			if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
				continue
			}
			res = append(res, r)
		}
		_ = file.Close()
	}
	return res, nil
}

// Close closes the underlying writer.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lj.Close()
}
