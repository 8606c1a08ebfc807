package ui

import "github.com/charmbracelet/lipgloss"

var colorError = lipgloss.Color("196") // red

var errorStyle = lipgloss.NewStyle().Foreground(colorError).Bold(true)

// Error styles a failure line.
func Error(s string) string { return errorStyle.Render("✗ " + s) }
