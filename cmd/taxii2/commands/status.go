package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fivetwenty-io/taxii2-client/internal/constants"
	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2client"
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	var (
		wait         bool
		pollInterval time.Duration
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status API_ROOT_URL STATUS_ID",
		Short: "Show the status of an add request",
		Long:  "Fetch the status resource of an add request, optionally polling until it completes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := newTAXIIConfig()
			if err != nil {
				return err
			}

			root, err := taxii2client.NewAPIRoot(args[0], config)
			if err != nil {
				return err
			}
			defer closeQuietly(cmd, root)

			ctx := commandContext(cmd)

			status, err := root.GetStatus(ctx, args[1])
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			if wait && !status.Complete() {
				if err := status.WaitUntilFinal(ctx, pollInterval, timeout); err != nil {
					return fmt.Errorf("failed to poll status: %w", err)
				}
			}

			return printStatus(cmd, status)
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "poll until the status is complete")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", constants.DefaultPollInterval, "time between status polls")
	cmd.Flags().DurationVar(&timeout, "timeout", constants.DefaultStatusTimeout, "stop polling after this long (0 waits forever)")

	return cmd
}

func printStatus(cmd *cobra.Command, status taxii2.Status) error {
	info := status.Info()

	if handled, err := printStructured(cmd.OutOrStdout(), info); handled {
		return err
	}

	table := newTable(cmd.OutOrStdout(), "Property", "Value")
	_ = table.Append("ID", info.ID)
	_ = table.Append("URL", status.URL())
	_ = table.Append("Status", info.Status)
	_ = table.Append("Request Timestamp", orNotAvailable(info.RequestTimestamp))
	_ = table.Append("Total", strconv.FormatInt(info.TotalCount, 10))
	_ = table.Append("Successes", strconv.FormatInt(info.SuccessCount, 10))
	_ = table.Append("Failures", strconv.FormatInt(info.FailureCount, 10))
	_ = table.Append("Pending", strconv.FormatInt(info.PendingCount, 10))

	for _, failure := range info.Failures {
		_ = table.Append("Failed "+failure.ID, orNotAvailable(failure.Message))
	}

	return renderTable(table)
}
