// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/tidedesk/internal/security/auth"
	"github.com/jeranaias/tidedesk/internal/util"
)

// =============================================================================
// USER COMMANDS
// =============================================================================

// addedUser is the JSON result of user add. Secret and URL are only set
// when TOTP was enabled.
type addedUser struct {
	User       auth.User `json:"user"`
	TOTPSecret string    `json:"totpSecret,omitempty"`
	TOTPURL    string    `json:"totpUrl,omitempty"`
}

func newUserCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local accounts",
	}
	cmd.AddCommand(newUserAddCommand(o), newUserListCommand(o),
		newUserDisableCommand(o, true), newUserDisableCommand(o, false))
	return cmd
}

func newUserAddCommand(o *options) *cobra.Command {
	var (
		name      string
		admin     bool
		totp      bool
		fromStdin bool
	)
	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		Example: `  tidedesk user add owner@example.com --name "Owner" --admin --totp
  echo "$PASSWORD" | tidedesk user add clerk@example.com --password-stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin(), fromStdin)
			if err != nil {
				return err
			}
			s, err := o.open()
			if err != nil {
				return err
			}
			defer s.Close()

			role := auth.RoleUser
			if admin {
				role = auth.RoleAdmin
			}
			return o.emit(cmd, func() (any, error) {
				u, key, err := s.Auth.AddUser(cmd.Context(), auth.NewUser{
					Email:       args[0],
					Password:    password,
					DisplayName: name,
					Role:        role,
					EnableTOTP:  totp,
				})
				if err != nil {
					return nil, err
				}
				out := addedUser{User: u}
				if key != nil {
					out.TOTPSecret = key.Secret()
					out.TOTPURL = key.URL()
				}
				return out, nil
			}, func(w io.Writer, data any) error {
				out := data.(addedUser)
				fmt.Fprintf(w, "%s created %s (%s)\n", RenderStatus("ok"), out.User.Email, out.User.Role)
				if out.TOTPURL != "" {
					fmt.Fprintln(w, RenderField("Authenticator secret", out.TOTPSecret))
					fmt.Fprintln(w, RenderField("Authenticator URL", out.TOTPURL))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().BoolVar(&admin, "admin", false, "create an administrator")
	cmd.Flags().BoolVar(&totp, "totp", false, "require an authenticator code at sign-in")
	cmd.Flags().BoolVar(&fromStdin, "password-stdin", false, "read the password from the first line of stdin")
	return cmd
}

func newUserListCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open()
			if err != nil {
				return err
			}
			defer s.Close()

			return o.emit(cmd, func() (any, error) {
				return s.Auth.ListUsers(cmd.Context())
			}, func(w io.Writer, data any) error {
				users := data.([]auth.User)
				fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Accounts (%d)", len(users))))
				for _, u := range users {
					status := "active"
					if u.Disabled {
						status = "disabled"
					}
					name := u.DisplayName
					if name == "" {
						name = "-"
					}
					fmt.Fprintf(w, "%s %s %s %s %s\n",
						RenderStatus(status),
						util.PadRight(u.Email, 32),
						util.PadRight(name, 20),
						util.PadRight(u.Role, 6),
						DimStyle.Render(u.CreatedAt.Format(time.DateOnly)))
				}
				return nil
			})
		},
	}
}

// newUserDisableCommand builds "disable" or, with disable false, "enable".
func newUserDisableCommand(o *options, disable bool) *cobra.Command {
	use, short, verb := "enable <email>", "Allow an account to sign in again", "enabled"
	if disable {
		use, short, verb = "disable <email>", "Block an account from signing in", "disabled"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open()
			if err != nil {
				return err
			}
			defer s.Close()

			return o.emit(cmd, func() (any, error) {
				if err := s.Auth.SetDisabled(cmd.Context(), args[0], disable); err != nil {
					return nil, err
				}
				return map[string]any{"email": args[0], "disabled": disable}, nil
			}, func(w io.Writer, _ any) error {
				_, err := fmt.Fprintf(w, "%s %s %s\n", RenderStatus("ok"), args[0], verb)
				return err
			})
		},
	}
}
