package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/matsys"
	"github.com/woozymasta/matsys/nullgfx"
)

// compileReport is the YAML output of the compile command.
type compileReport struct {
	Material     string            `yaml:"material"`
	Shader       string            `yaml:"shader"`
	Error        bool              `yaml:"errorDefinition,omitempty"`
	Translucent  bool              `yaml:"translucent"`
	AlphaTested  bool              `yaml:"alphaTested"`
	VertexFormat string            `yaml:"vertexFormat"`
	Passes       map[string]int    `yaml:"passes"`
	Vars         map[string]string `yaml:"vars,omitempty"`
	Backend      nullgfx.Stats     `yaml:"backend"`
}

func newCompileCmd(g *globalFlags) *cobra.Command {
	var showVars bool
	cmd := &cobra.Command{
		Use:   "compile <material>...",
		Short: "Compile materials against the null backend and report their passes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()

			for _, name := range args {
				m := e.sys.FindMaterial(name, "")
				m.IncRef()
				m.Precache()

				rep := compileReport{
					Material:     m.Name(),
					Shader:       m.ShaderName(),
					Error:        m.IsErrorMaterial(),
					Translucent:  m.IsTranslucent(),
					AlphaTested:  m.IsAlphaTested(),
					VertexFormat: m.VertexFormat().String(),
					Passes:       make(map[string]int),
					Backend:      e.gfx.Stats(),
				}
				for mod := matsys.Modulation(0); mod < matsys.NumModulations; mod++ {
					if n := m.PassCount(mod); n > 0 {
						rep.Passes[mod.String()] = n
					}
				}
				if showVars {
					rep.Vars = make(map[string]string)
					for _, v := range m.Vars().All() {
						rep.Vars[v.Name()] = v.GetString()
					}
				}
				if err := enc.Encode(rep); err != nil {
					return err
				}
			}

			return nil
		},
	}
	cmd.Flags().BoolVar(&showVars, "vars", false, "include variable values")

	return cmd
}
