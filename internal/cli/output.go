// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

// =============================================================================
// JSON OUTPUT
// =============================================================================

// JSONResponse wraps every --json result.
type JSONResponse struct {
	Success   bool    `json:"success"`
	Data      any     `json:"data"`
	Error     *string `json:"error"`
	Timestamp string  `json:"timestamp"`
	Command   string  `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response, indented, followed by a newline.
func (r *JSONResponse) Write(w io.Writer) error {
	data, err := sonic.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s response: %w", r.Command, err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// emit runs handler and prints its result: as a JSONResponse with --json,
// otherwise through human. Errors in JSON mode are printed and returned.
func (o *options) emit(cmd *cobra.Command, handler func() (any, error), human func(w io.Writer, data any) error) error {
	data, err := handler()
	out := cmd.OutOrStdout()
	if o.jsonOut {
		if err != nil {
			_ = NewJSONErrorResponse(cmd.CommandPath(), err).Write(out)
			return err
		}
		return NewJSONResponse(cmd.CommandPath(), data).Write(out)
	}
	if err != nil {
		return err
	}
	return human(out, data)
}

// notice prints a human-readable line to stderr.
func notice(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
}
