// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package movies

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// DecodeStats describes what Decode skipped.
type DecodeStats struct {
	// Lines is true when the payload was read as JSON Lines.
	Lines bool

	// Decoded is the number of records returned.
	Decoded int

	// Skipped is the number of array elements or lines that did not decode.
	Skipped int
}

// Decode reads the whole stream and decodes it with DecodeBytes.
func Decode(r io.Reader) ([]Record, DecodeStats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, DecodeStats{}, fmt.Errorf("read dataset: %w", err)
	}
	records, stats := DecodeBytes(data)
	return records, stats, nil
}

// DecodeBytes decodes a JSON array of records, or JSON Lines when the
// payload is not a single array.
//
// Description:
//
//	Elements (or lines) that fail to decode as an object are skipped and
//	counted. An empty or whitespace-only payload yields zero records.
//	DecodeBytes never fails: a payload that is neither shape simply yields
//	the lines that did decode.
//
// Outputs:
//
//	[]Record - Decoded records in payload order. Never nil.
//	DecodeStats - Counts of decoded and skipped entries.
func DecodeBytes(data []byte) ([]Record, DecodeStats) {
	trimmed := bytes.TrimSpace(data)
	records := make([]Record, 0)
	stats := DecodeStats{}
	if len(trimmed) == 0 {
		return records, stats
	}

	var elements []json.RawMessage
	if trimmed[0] == '[' && json.Unmarshal(trimmed, &elements) == nil {
		for _, el := range elements {
			var rec Record
			if err := json.Unmarshal(el, &rec); err != nil {
				stats.Skipped++
				continue
			}
			records = append(records, rec)
		}
		stats.Decoded = len(records)
		return records, stats
	}

	stats.Lines = true
	for _, line := range bytes.Split(trimmed, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			stats.Skipped++
			continue
		}
		records = append(records, rec)
	}
	stats.Decoded = len(records)

	if stats.Skipped > 0 {
		slog.Debug("skipped undecodable dataset lines",
			slog.Int("skipped", stats.Skipped),
			slog.Int("decoded", stats.Decoded),
		)
	}
	return records, stats
}
