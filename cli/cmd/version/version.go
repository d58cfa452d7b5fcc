package version

import (
	"github.com/compozy/storagectl/cli/helpers"
	"github.com/compozy/storagectl/pkg/version"
	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

type view struct {
	version.Info `yaml:",inline"`
}

func (v view) Render() string {
	banner := figure.NewFigure("storagectl", "standard", true).String()
	return banner + "\n" + helpers.RenderKeyValues("",
		helpers.KV{Key: "version", Value: v.Version},
		helpers.KV{Key: "commit", Value: v.CommitHash},
		helpers.KV{Key: "built", Value: v.BuildDate},
		helpers.KV{Key: "go", Value: v.GoVersion},
	)
}

// NewVersionCommand prints build information. It needs no storage setup.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// overrides the root hook so no config is read
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(c *cobra.Command, _ []string) error {
			return helpers.NewOutputWriter(c.OutOrStdout(), helpers.DetectFormat(c)).WriteData(view{Info: version.Get()})
		},
	}
}
