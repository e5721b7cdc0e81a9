package commands

import (
	"github.com/fivetwenty-io/taxii2-client/internal/constants"
	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long:  "Display detailed version information about the TAXII CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			type VersionInfo struct {
				Version   string `json:"version"    yaml:"version"`
				Commit    string `json:"commit"     yaml:"commit"`
				Built     string `json:"built"      yaml:"built"`
				UserAgent string `json:"user_agent" yaml:"user_agent"`
			}

			versionInfo := VersionInfo{
				Version:   version,
				Commit:    commit,
				Built:     date,
				UserAgent: taxii2.UserAgent(constants.Release),
			}

			if handled, err := printStructured(cmd.OutOrStdout(), versionInfo); handled {
				return err
			}

			table := newTable(cmd.OutOrStdout(), "Property", "Value")
			_ = table.Append("Version", version)
			_ = table.Append("Commit", commit)
			_ = table.Append("Built", date)
			_ = table.Append("User Agent", versionInfo.UserAgent)

			return renderTable(table)
		},
	}
}
