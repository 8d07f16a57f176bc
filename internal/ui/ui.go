// Package ui holds terminal styles shared by the CLI commands.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

// RenderAccent styles s as an accent.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderSuccess styles s as a success.
func RenderSuccess(s string) string { return successStyle.Render(s) }

// RenderWarn styles s as a warning.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderError styles s as an error.
func RenderError(s string) string { return errorStyle.Render(s) }

// RenderMuted styles s as secondary text.
func RenderMuted(s string) string { return mutedStyle.Render(s) }

// RenderHeader styles s as a section header.
func RenderHeader(s string) string { return headerStyle.Render(s) }
