// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Ocean - Brand color, active tab, headers
var Ocean = lipgloss.AdaptiveColor{Light: "#0369A1", Dark: "#38BDF8"}

// OceanDeep - Darker ocean for backgrounds
var OceanDeep = lipgloss.AdaptiveColor{Light: "#075985", Dark: "#0C4A6E"}

// Kelp - Success, revenue, in-stock
var Kelp = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Coral - Errors, expenses, out of stock
var Coral = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Sand - Warnings, low stock, session countdown
var Sand = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// Shell - Secondary accent for selections
var Shell = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// Surface - Main background
var Surface = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// SurfaceDim - Header, footer and overlay backdrop
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}

// Overlay - Borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// =============================================================================
// TEXT COLORS
// =============================================================================

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}

// =============================================================================
// CHART SERIES
// =============================================================================

// ChartPalette colors successive chart series and category slices.
var ChartPalette = []lipgloss.AdaptiveColor{Ocean, Kelp, Sand, Shell, Coral, TextSecondary}

// SeriesColor returns the palette color for index i, wrapping around.
func SeriesColor(i int) lipgloss.AdaptiveColor {
	if i < 0 {
		i = -i
	}
	return ChartPalette[i%len(ChartPalette)]
}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// StatusIndicatorSet holds text markers shown next to colored status text,
// so state is readable without color.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
	Active  string
}

// StatusIndicators are ASCII-only for terminal compatibility.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Active:  "[*]",
}
