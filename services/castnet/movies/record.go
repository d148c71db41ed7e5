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
	"strings"
)

// Actor is a single (actor_id, actor_name) credit on a movie.
type Actor struct {
	// ID is the globally unique actor identifier (e.g. "nm1165110").
	ID string

	// Name is the display name. Empty when the source carried null.
	Name string
}

// Record is one movie of the dataset.
//
// Records are immutable after decoding. Consumers MUST NOT modify the
// Genres or Actors slices.
type Record struct {
	// ID is the movie identifier. May be empty.
	ID string

	// Title is the movie title. May be empty.
	Title string

	// Year is the release year as text. May be empty.
	Year string

	// Rating is the rating as text. May be empty.
	Rating string

	// Genres lists genre labels in source order.
	Genres []string

	// Actors lists credits in source order. May contain duplicates.
	Actors []Actor

	// ActorsMalformed is true when the source "actors" value was present
	// but not a list. Actors is empty in that case.
	ActorsMalformed bool
}

// rawRecord captures every field as raw JSON so each one can be decoded
// leniently on its own.
type rawRecord struct {
	ID     json.RawMessage `json:"id"`
	Title  json.RawMessage `json:"title"`
	Year   json.RawMessage `json:"year"`
	Rating json.RawMessage `json:"rating"`
	Genres json.RawMessage `json:"genres"`
	Actors json.RawMessage `json:"actors"`
}

// UnmarshalJSON decodes a record, defaulting every missing or mistyped
// field instead of failing. Only a non-object payload is an error.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.ID = scalarText(raw.ID)
	r.Title = scalarText(raw.Title)
	r.Year = scalarText(raw.Year)
	r.Rating = scalarText(raw.Rating)
	r.Genres = decodeGenres(raw.Genres)
	r.Actors, r.ActorsMalformed = decodeActors(raw.Actors)
	return nil
}

// scalarText renders a JSON string, number or bool as text.
// Null, absent, arrays and objects become "".
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '[', '{', 'n':
		return ""
	default:
		return strings.TrimSpace(string(raw))
	}
}

// decodeGenres keeps the string entries of a JSON list.
func decodeGenres(raw json.RawMessage) []string {
	var items []json.RawMessage
	if !isList(raw) || json.Unmarshal(raw, &items) != nil {
		return []string{}
	}

	genres := make([]string, 0, len(items))
	for _, item := range items {
		var g string
		if err := json.Unmarshal(item, &g); err != nil {
			continue
		}
		genres = append(genres, g)
	}
	return genres
}

// decodeActors keeps the well-formed [id, name] pairs of a JSON list.
//
// The second return is true when the value is present, not null, and
// not a list.
func decodeActors(raw json.RawMessage) ([]Actor, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Actor{}, false
	}

	var items []json.RawMessage
	if !isList(trimmed) || json.Unmarshal(trimmed, &items) != nil {
		return []Actor{}, true
	}

	actors := make([]Actor, 0, len(items))
	for _, item := range items {
		actor, ok := decodeActor(item)
		if !ok {
			continue
		}
		actors = append(actors, actor)
	}
	return actors, false
}

// decodeActor decodes one ["nm0000001", "Name"] entry.
func decodeActor(raw json.RawMessage) (Actor, bool) {
	var pair []json.RawMessage
	if !isList(raw) || json.Unmarshal(raw, &pair) != nil || len(pair) != 2 {
		return Actor{}, false
	}

	var id string
	if err := json.Unmarshal(pair[0], &id); err != nil || id == "" {
		return Actor{}, false
	}

	// A null name is tolerated; any other non-string is not.
	var name *string
	if err := json.Unmarshal(pair[1], &name); err != nil {
		return Actor{}, false
	}
	actor := Actor{ID: id}
	if name != nil {
		actor.Name = *name
	}
	return actor, true
}

func isList(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
