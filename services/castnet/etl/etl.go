// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package etl flattens movie records into one row per actor credit.
package etl

import (
	"encoding/json"
	"strconv"

	"github.com/AleutianAI/castnet/services/castnet/export"
	"github.com/AleutianAI/castnet/services/castnet/movies"
)

// Table names, used as file name stems.
const (
	ActorTableName   = "imdb_movies_actors"
	NetworkTableName = "network_data"
	GenreTableName   = "genre_data"
)

// ActorRow is one actor credit with its movie's attributes.
type ActorRow struct {
	MovieID   string
	Title     string
	Year      string
	Rating    string
	Genres    []string
	ActorID   string
	ActorName string
}

// Flatten emits one row per actor credit, in record then credit order.
//
// A record without an id gets "movie_<n>", where n is the number of rows
// emitted before it. Records without actors emit nothing.
func Flatten(records []movies.Record) []ActorRow {
	rows := make([]ActorRow, 0, len(records))
	for i := range records {
		rec := &records[i]
		movieID := rec.ID
		if movieID == "" {
			movieID = "movie_" + strconv.Itoa(len(rows))
		}
		for _, actor := range rec.Actors {
			rows = append(rows, ActorRow{
				MovieID:   movieID,
				Title:     rec.Title,
				Year:      rec.Year,
				Rating:    rec.Rating,
				Genres:    rec.Genres,
				ActorID:   actor.ID,
				ActorName: actor.Name,
			})
		}
	}
	return rows
}

// genresJSON renders genres as a JSON array; nil renders as [].
func genresJSON(genres []string) string {
	if genres == nil {
		return "[]"
	}
	data, err := json.Marshal(genres)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// ActorTable renders every column of the flattened rows.
func ActorTable(rows []ActorRow) export.Table {
	t := export.Table{
		Name:   ActorTableName,
		Header: []string{"movie_id", "title", "year", "rating", "genres", "actor_id", "actor_name"},
		Rows:   make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{
			r.MovieID, r.Title, r.Year, r.Rating, genresJSON(r.Genres), r.ActorID, r.ActorName,
		})
	}
	return t
}

// NetworkTable renders the actor-to-movie links.
func NetworkTable(rows []ActorRow) export.Table {
	t := export.Table{
		Name:   NetworkTableName,
		Header: []string{"actor_id", "actor_name", "movie_id", "title"},
		Rows:   make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.ActorID, r.ActorName, r.MovieID, r.Title})
	}
	return t
}

// GenreTable renders each credit's genres.
func GenreTable(rows []ActorRow) export.Table {
	t := export.Table{
		Name:   GenreTableName,
		Header: []string{"actor_id", "actor_name", "genres"},
		Rows:   make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.ActorID, r.ActorName, genresJSON(r.Genres)})
	}
	return t
}
