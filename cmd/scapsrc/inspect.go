package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"go2tv.app/scapsrc/scapsrc"
)

type inspectOutput struct {
	Element *scapsrc.Descriptor `yaml:"element"`
	SrcCaps string              `yaml:"src_caps"`
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the element capabilities and properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d := scapsrc.DefaultDescriptor()
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(inspectOutput{Element: d, SrcCaps: d.TemplateCaps().String()}); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
