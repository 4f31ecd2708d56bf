// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli is the tidedesk command line.
//
// Running tidedesk with no arguments starts the terminal back-office. The
// subcommands work on the same local database without a terminal UI:
//
//	tidedesk report <daily|monthly|category|profit|top|inventory|alerts>
//	tidedesk telemetry [errors|performance|export|clear]
//	tidedesk user <add|list|disable|enable>
//	tidedesk import <file.json>
//	tidedesk config <show|get|set|keys|path>
//
// Every command that prints data accepts --json. JSON goes to stdout;
// human-readable notices go to stderr.
package cli
