package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"content-analyzer/internal/catalog"
)

func newParseCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a question document into a catalog",
		Long: `Reads a question document (PDF, DOCX or TXT) and prints the categories
and questions found in it, in order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := readCatalog(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return fmt.Errorf("no questions found: %w", err)
			}
			if jsonOut {
				payload, err := json.MarshalIndent(c, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal catalog: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(payload))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), catalog.Format(c))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the catalog as JSON")
	return cmd
}
