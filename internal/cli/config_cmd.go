// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/tidedesk/internal/config"
)

// =============================================================================
// CONFIG COMMANDS
// =============================================================================

func newConfigCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := o.loadConfig()
				if err != nil {
					return err
				}
				return o.emit(cmd, func() (any, error) { return cfg, nil }, func(w io.Writer, _ any) error {
					return toml.NewEncoder(w).Encode(cfg)
				})
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := o.loadConfig()
				if err != nil {
					return err
				}
				return o.emit(cmd, func() (any, error) {
					v, err := cfg.Get(args[0])
					if err != nil {
						return nil, err
					}
					return map[string]any{args[0]: v}, nil
				}, func(w io.Writer, data any) error {
					_, err := fmt.Fprintln(w, data.(map[string]any)[args[0]])
					return err
				})
			},
		},
		&cobra.Command{
			Use:     "set <key> <value>",
			Short:   "Change one setting and save the config file",
			Args:    cobra.ExactArgs(2),
			Example: "  tidedesk config set session.timeout_minutes 15",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := o.loadConfig()
				if err != nil {
					return err
				}
				if err := cfg.Set(args[0], args[1]); err != nil {
					return err
				}
				if err := cfg.Validate(); err != nil {
					return err
				}
				if o.configPath != "" {
					err = config.SaveTOML(cfg, o.configPath)
				} else {
					err = config.Save(cfg)
				}
				if err != nil {
					return err
				}
				return o.emit(cmd, func() (any, error) {
					return map[string]string{args[0]: args[1]}, nil
				}, func(w io.Writer, _ any) error {
					_, err := fmt.Fprintf(w, "%s %s = %s\n", RenderStatus("ok"), args[0], args[1])
					return err
				})
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List every setting name",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.emit(cmd, func() (any, error) { return config.Keys(), nil }, func(w io.Writer, data any) error {
					for _, k := range data.([]string) {
						fmt.Fprintln(w, k)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path := o.configPath
				if path == "" {
					var err error
					if path, err = config.ConfigPathTOML(); err != nil {
						return err
					}
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
				return err
			},
		},
	)
	return cmd
}
