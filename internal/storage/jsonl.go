package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"feederpool/internal/model"
)

// JSONL file names inside the output directory.
const (
	eventsFile       = "events.jsonl"
	positionsFile    = "positions.jsonl"
	valueSamplesFile = "value_samples.jsonl"
)

// JsonlStorage appends records as JSON lines under a directory.
type JsonlStorage struct {
	dir string
	mu  sync.Mutex
}

func NewJsonlStorage(dir string) *JsonlStorage {
	return &JsonlStorage{dir: dir}
}

// PutEventBatch appends a batch of pool events.
func (s *JsonlStorage) PutEventBatch(_ context.Context, events []model.PoolEvent) error {
	records := make([]interface{}, len(events))
	for i, event := range events {
		records[i] = event
	}
	return s.appendLines(eventsFile, records)
}

// PutPositionBatch appends a batch of depositor positions.
func (s *JsonlStorage) PutPositionBatch(_ context.Context, positions []model.Position) error {
	records := make([]interface{}, len(positions))
	for i, position := range positions {
		records[i] = position
	}
	return s.appendLines(positionsFile, records)
}

// PutValueSampleBatch appends a batch of valuation samples.
func (s *JsonlStorage) PutValueSampleBatch(_ context.Context, samples []model.ValueSample) error {
	records := make([]interface{}, len(samples))
	for i, sample := range samples {
		records[i] = sample
	}
	return s.appendLines(valueSamplesFile, records)
}

func (s *JsonlStorage) appendLines(name string, records []interface{}) error {
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
