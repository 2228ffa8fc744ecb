// Package ui renders terminal output for the CLI with lipgloss.
//
// [Styles] is the shared palette for titles, success, error, and warning lines. [PrintProgress] consumes the
// progress channel of a long-running operation and prints one line per [tasks.ProgressUpdate], so the engines
// never block on the terminal.
package ui
