// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/tidedesk/internal/security/auth"
)

// =============================================================================
// CONFIRMATION
// =============================================================================

// ErrConfirmationRequired is returned when a destructive command cannot
// prompt and --yes was not given.
var ErrConfirmationRequired = errors.New("confirmation required: pass --yes")

// confirm asks before a destructive action:
//  1. --yes proceeds without asking
//  2. --json or a non-terminal stdin requires --yes
//  3. otherwise the user is prompted
func confirm(action string, yes, jsonMode bool) (bool, error) {
	if yes {
		return true, nil
	}
	if jsonMode || !IsTTY() {
		return false, ErrConfirmationRequired
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	answer, err := line.Prompt(WarningStyle.Render(action+"?") + " [y/N] ")
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// =============================================================================
// PASSWORDS
// =============================================================================

// readPassword takes the first line of in when fromStdin is set, and
// otherwise prompts twice without echo.
func readPassword(in io.Reader, fromStdin bool) (string, error) {
	if fromStdin {
		sc := bufio.NewScanner(in)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", fmt.Errorf("read password: %w", err)
			}
			return "", errors.New("read password: stdin is empty")
		}
		return strings.TrimRight(sc.Text(), "\r"), nil
	}
	if !IsTTY() {
		return "", errors.New("no terminal for the password prompt; use --password-stdin")
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	pw, err := line.PasswordPrompt("Password: ")
	if err != nil {
		return "", err
	}
	again, err := line.PasswordPrompt("Confirm password: ")
	if err != nil {
		return "", err
	}
	if pw != again {
		return "", auth.ErrPasswordMismatch
	}
	return pw, nil
}
