// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jeranaias/tidedesk/internal/backoffice"
)

func newImportCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json|->",
		Short: "Load products, suppliers and transactions from JSON",
		Long: `import reads a JSON object with "products", "suppliers" and
"transactions" arrays and stores every valid record. Invalid records are
reported and skipped. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			return o.withApp(cmd, func(s *session) (any, error) {
				return s.Import(cmd.Context(), in)
			}, func(w io.Writer, data any) error {
				res := data.(backoffice.ImportResult)
				fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Imported %d records", res.Total())))
				collections := make([]string, 0, len(res.Created))
				for c := range res.Created {
					collections = append(collections, c)
				}
				sort.Strings(collections)
				for _, c := range collections {
					fmt.Fprintln(w, RenderField(c, fmt.Sprint(res.Created[c])))
				}
				for _, r := range res.Rejected {
					fmt.Fprintf(w, "%s %s\n", RenderStatus("warning"), r)
				}
				return nil
			})
		},
	}
}
