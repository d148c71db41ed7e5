// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// PersonalityLevel controls how much styling console output carries.
type PersonalityLevel string

const (
	// PersonalityFull enables colors, boxes and icons.
	PersonalityFull PersonalityLevel = "full"

	// PersonalityMinimal keeps icons but drops colors and boxes.
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine outputs plain tab-separated text for scripts.
	PersonalityMachine PersonalityLevel = "machine"
)

var (
	currentLevel = PersonalityFull
	levelMu      sync.RWMutex
)

// GetPersonalityLevel returns the process-wide output level.
func GetPersonalityLevel() PersonalityLevel {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return currentLevel
}

// SetPersonalityLevel sets the process-wide output level.
func SetPersonalityLevel(level PersonalityLevel) {
	levelMu.Lock()
	defer levelMu.Unlock()
	currentLevel = level
}

// ParsePersonalityLevel maps a name or short alias to a level. Unknown
// names give PersonalityFull.
func ParsePersonalityLevel(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "plain", "quiet", "q":
		return PersonalityMachine
	default:
		return PersonalityFull
	}
}

// InitPersonality picks the level from CASTNET_OUTPUT, falling back to
// machine output when stdout is not a terminal.
func InitPersonality() {
	if env := os.Getenv("CASTNET_OUTPUT"); env != "" {
		SetPersonalityLevel(ParsePersonalityLevel(env))
		return
	}
	if !isTerminal() {
		SetPersonalityLevel(PersonalityMachine)
		return
	}
	SetPersonalityLevel(PersonalityFull)
}

func isTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
