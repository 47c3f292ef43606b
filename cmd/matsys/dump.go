package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/woozymasta/matsys"
)

func newDumpCmd(g *globalFlags) *cobra.Command {
	var (
		format string
		merged bool
	)
	cmd := &cobra.Command{
		Use:   "dump <material>",
		Short: "Print a definition with its patch chain applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			var doc *matsys.Node
			if merged {
				m := e.sys.FindMaterial(args[0], "")
				m.PrecacheVars()
				doc = m.Config()
			} else {
				def, err := e.sys.Loader().LoadDefinition(args[0])
				if err != nil {
					return err
				}
				doc = def.Root
			}

			var out []byte
			switch format {
			case "text":
				out, err = matsys.Format(doc, nil)
			case "yaml":
				out, err = matsys.MarshalYAMLBytes(doc)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or yaml")
	cmd.Flags().BoolVar(&merged, "merged", false, "print the configuration merged for the configured capabilities")

	return cmd
}
