// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the castnet CLI.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // headers
	ColorTealDeep    = lipgloss.Color("#16858E") // borders
	ColorSlate       = lipgloss.Color("#2C4A54") // muted text

	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Header:  lipgloss.NewStyle().Bold(true).Foreground(ColorTealPrimary),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorTealBright),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
}

// Icon is a status glyph.
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

// Render returns the icon with its style.
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// =============================================================================
// Printer
// =============================================================================

// Printer writes styled output at a fixed personality level.
type Printer struct {
	w     io.Writer
	level PersonalityLevel
}

// NewPrinter returns a Printer at the process-wide level.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, level: GetPersonalityLevel()}
}

// NewPrinterLevel returns a Printer at the given level.
func NewPrinterLevel(w io.Writer, level PersonalityLevel) *Printer {
	return &Printer{w: w, level: level}
}

// Title prints a heading. Machine output omits it.
func (p *Printer) Title(text string) {
	switch p.level {
	case PersonalityMachine:
		return
	case PersonalityMinimal:
		fmt.Fprintln(p.w, text)
	default:
		fmt.Fprintln(p.w, Styles.Title.Render(text))
	}
}

// Success prints a success line.
func (p *Printer) Success(text string) {
	p.status(IconSuccess, "OK", Styles.Success, text)
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	p.status(IconWarning, "WARN", Styles.Warning, text)
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	p.status(IconError, "ERROR", Styles.Error, text)
}

func (p *Printer) status(icon Icon, label string, style lipgloss.Style, text string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.w, "%s: %s\n", label, text)
	case PersonalityMinimal:
		fmt.Fprintf(p.w, "%s %s\n", icon, text)
	default:
		fmt.Fprintf(p.w, "%s %s\n", icon.Render(), style.Render(text))
	}
}

// Field is one labelled value of a summary.
type Field struct {
	Label string
	Value any
}

// Summary prints labelled values, boxed at full level and as
// "label=value" lines for machines.
func (p *Printer) Summary(title string, fields ...Field) {
	if p.level == PersonalityMachine {
		for _, f := range fields {
			fmt.Fprintf(p.w, "%s=%v\n", machineKey(f.Label), f.Value)
		}
		return
	}

	width := 0
	for _, f := range fields {
		width = max(width, len(f.Label))
	}
	lines := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		label := fmt.Sprintf("%-*s", width, f.Label)
		if p.level == PersonalityFull {
			label = Styles.Muted.Render(label)
		}
		lines = append(lines, fmt.Sprintf("%s  %v", label, f.Value))
	}

	if p.level == PersonalityMinimal {
		fmt.Fprintln(p.w, title)
		fmt.Fprintln(p.w, strings.Join(lines, "\n"))
		return
	}
	body := Styles.Title.Render(title) + "\n" + strings.Join(lines, "\n")
	fmt.Fprintln(p.w, Styles.Box.Render(body))
}

// Table prints rows under a header with aligned columns. Machine output is
// tab-separated without styling.
func (p *Printer) Table(header []string, rows [][]string) {
	if p.level == PersonalityMachine {
		fmt.Fprintln(p.w, strings.Join(header, "\t"))
		for _, row := range rows {
			fmt.Fprintln(p.w, strings.Join(row, "\t"))
		}
		return
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], lipgloss.Width(row[i]))
		}
	}

	p.tableRow(header, widths, Styles.Header)
	for _, row := range rows {
		p.tableRow(row, widths, lipgloss.NewStyle())
	}
}

func (p *Printer) tableRow(cells []string, widths []int, style lipgloss.Style) {
	parts := make([]string, len(widths))
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		padded := cell + strings.Repeat(" ", w-lipgloss.Width(cell))
		if p.level == PersonalityFull {
			padded = style.Render(padded)
		}
		parts[i] = padded
	}
	fmt.Fprintln(p.w, strings.TrimRight(strings.Join(parts, "  "), " "))
}

// machineKey turns "Retained nodes" into "retained_nodes".
func machineKey(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}
