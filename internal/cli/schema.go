package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/guildscript/internal/compiler"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for YAML definition documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := compiler.Schema()
			if err != nil {
				return rootOpts.formatter(cmd).Fail(err)
			}
			data = append(data, '\n')
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
