package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/woozymasta/matsys"
)

func newLintCmd(g *globalFlags) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "lint <material>...",
		Short: "Validate material definitions",
		Long: "Validate material definitions by logical name relative to the root.\n" +
			"Arguments ending in the document extension are read as files instead.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			errorsFound, warnings := 0, 0
			for _, arg := range args {
				issues, err := lintOne(e, arg)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", arg, err)
					errorsFound++
					continue
				}
				for _, is := range issues {
					switch is.Level {
					case matsys.IssueError:
						errorsFound++
					default:
						warnings++
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s: %s [%s] %s\n", arg, is.Level, is.Path, is.Code, is.Message)
				}
			}

			if errorsFound > 0 || (strict && warnings > 0) {
				return fmt.Errorf("%d errors, %d warnings", errorsFound, warnings)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on warnings")

	return cmd
}

func lintOne(e *env, arg string) ([]matsys.Issue, error) {
	if !strings.EqualFold(filepath.Ext(arg), e.cfg.Extension) {
		return e.sys.Validate(arg)
	}

	doc, err := matsys.DecodeFile(arg, nil)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.ToSlash(arg), filepath.Ext(arg))
	if rel, err := filepath.Rel(e.cfg.Root, arg); err == nil && !strings.HasPrefix(rel, "..") {
		name = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
	}
	caps := e.sys.Capabilities()

	return matsys.Validate(name, doc, e.sys.Registry(), &matsys.ValidateOptions{Capabilities: &caps}), nil
}
