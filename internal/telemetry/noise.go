// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import "strings"

// DefaultIgnoredMessages are error messages known to be harmless.
var DefaultIgnoredMessages = []string{
	"Illegal invocation",
	"Script error.",
	"ResizeObserver loop limit exceeded",
	"NetworkError when attempting to fetch resource",
	"Failed to fetch",
}

// DefaultIgnoredSources are analytics and font sources whose failures are
// noise.
var DefaultIgnoredSources = []string{
	"bootstrap-icons.woff2",
	"bootstrap-icons.woff",
	"googletagmanager.com",
	"google-analytics.com",
	"analytics.google.com",
	"ssl.google-analytics.com",
	"region1.google-analytics.com",
	"region1.analytics.google.com",
	"www.google-analytics.com",
	"g/collect",
	"G-EP0RBFGLW6",
}

// sourceKeys are the detail fields that may hold a source location.
var sourceKeys = []string{"source", "filename", "url", "src"}

// NoiseFilter drops entries that match a denylisted message or source.
type NoiseFilter struct {
	Messages []string
	Sources  []string
}

// DefaultNoiseFilter returns a filter with the default denylists.
func DefaultNoiseFilter() *NoiseFilter {
	return &NoiseFilter{
		Messages: append([]string(nil), DefaultIgnoredMessages...),
		Sources:  append([]string(nil), DefaultIgnoredSources...),
	}
}

// Ignore reports whether an event with this message and source is noise.
// Both message and source are checked against the source list.
func (f *NoiseFilter) Ignore(message, source string) bool {
	if f == nil {
		return false
	}
	for _, m := range f.Messages {
		if message != "" && strings.Contains(message, m) {
			return true
		}
	}
	for _, s := range f.Sources {
		if message != "" && strings.Contains(message, s) {
			return true
		}
		if source != "" && strings.Contains(source, s) {
			return true
		}
	}
	return false
}

// Matches applies Ignore to an entry's message and every source detail.
func (f *NoiseFilter) Matches(e Entry) bool {
	if f.Ignore(e.Message(), "") {
		return true
	}
	for _, k := range sourceKeys {
		if s, ok := e.Details[k].(string); ok && f.Ignore("", s) {
			return true
		}
	}
	return false
}
