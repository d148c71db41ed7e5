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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBytes_Array(t *testing.T) {
	payload := `[
		{"id":"tt1","actors":[["a","Alice"],["b","Bob"]]},
		17,
		{"id":"tt2","actors":[["c","Carol"]]}
	]`

	records, stats := DecodeBytes([]byte(payload))

	require.Len(t, records, 2)
	assert.Equal(t, "tt1", records[0].ID)
	assert.Equal(t, "tt2", records[1].ID)
	assert.False(t, stats.Lines)
	assert.Equal(t, 2, stats.Decoded)
	assert.Equal(t, 1, stats.Skipped)
}

func TestDecodeBytes_JSONLines(t *testing.T) {
	payload := strings.Join([]string{
		`{"id":"tt1","actors":[["a","Alice"]]}`,
		``,
		`{not json`,
		`{"id":"tt2"}`,
	}, "\n")

	records, stats := DecodeBytes([]byte(payload))

	require.Len(t, records, 2)
	assert.Equal(t, "tt1", records[0].ID)
	assert.Equal(t, "tt2", records[1].ID)
	assert.True(t, stats.Lines)
	assert.Equal(t, 1, stats.Skipped)
}

func TestDecodeBytes_Empty(t *testing.T) {
	for _, payload := range []string{"", "   \n\t "} {
		records, stats := DecodeBytes([]byte(payload))
		assert.NotNil(t, records)
		assert.Empty(t, records)
		assert.Equal(t, 0, stats.Decoded)
	}
}

func TestDecode_Reader(t *testing.T) {
	records, stats, err := Decode(strings.NewReader(`[{"id":"tt9"}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, stats.Decoded)
}
