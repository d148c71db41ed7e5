// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer Close(db)

	assert.True(t, db.Opts().InMemory)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	cfg := DefaultConfig(dir)
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("dataset"), []byte("payload"))
	}))
	require.NoError(t, Close(db))

	db, err = Open(cfg)
	require.NoError(t, err)
	defer Close(db)

	var got []byte
	require.NoError(t, db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("dataset"))
		if err != nil {
			return err
		}
		got, err = item.ValueCopy(nil)
		return err
	}))
	assert.Equal(t, "payload", string(got))
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}
