package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fivetwenty-io/taxii2-client/internal/constants"
	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewAddCommand creates the add command.
func NewAddCommand() *cobra.Command {
	var (
		noWait       bool
		pollInterval time.Duration
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "add COLLECTION_URL FILE",
		Short: "Add objects to a collection",
		Long: `Add STIX objects read from FILE (or - for stdin) to a collection.

FILE may hold a single STIX object, a list of objects, a bundle or an
envelope. The payload is converted to a bundle for TAXII 2.0 and to an
envelope for TAXII 2.1.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readPayload(cmd, args[1])
			if err != nil {
				return err
			}

			collection, err := openCollection(args[0])
			if err != nil {
				return err
			}
			defer closeQuietly(cmd, collection)

			payload, err := buildPayload(data, collection.Version())
			if err != nil {
				return err
			}

			status, err := collection.AddObjects(commandContext(cmd), payload,
				taxii2.WithWaitForCompletion(!noWait),
				taxii2.WithPollInterval(pollInterval),
				taxii2.WithTimeout(timeout))
			if err != nil {
				return fmt.Errorf("failed to add objects: %w", err)
			}

			if err := printStatus(cmd, status); err != nil {
				return err
			}

			if !noWait && !status.Complete() {
				return ErrStatusNotComplete
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&noWait, "no-wait", false, "return the first status without polling")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", constants.DefaultPollInterval, "time between status polls")
	cmd.Flags().DurationVar(&timeout, "timeout", constants.DefaultStatusTimeout, "stop polling after this long (0 waits forever)")

	return cmd
}

func readPayload(cmd *cobra.Command, path string) ([]byte, error) {
	if path == promptValue {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}

		return data, nil
	}

	// path is supplied by the user running the CLI
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return data, nil
}

// buildPayload turns a user supplied document into the body the collection
// expects: a STIX bundle for TAXII 2.0 and an envelope for TAXII 2.1.
// Bundles sent to 2.0 and envelopes sent to 2.1 pass through unchanged.
func buildPayload(data []byte, version taxii2.Version) (interface{}, error) {
	var document interface{}
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}

	var objects []json.RawMessage

	switch typed := document.(type) {
	case []interface{}:
		if err := json.Unmarshal(data, &objects); err != nil {
			return nil, fmt.Errorf("failed to parse payload: %w", err)
		}
	case map[string]interface{}:
		objectType, _ := typed["type"].(string)
		_, hasObjects := typed["objects"]

		switch {
		case objectType == "bundle" && version == taxii2.Version20:
			return json.RawMessage(data), nil
		case objectType == "" && hasObjects && version == taxii2.Version21:
			return json.RawMessage(data), nil
		case objectType == "bundle" || (objectType == "" && hasObjects):
			var list objectList
			if err := json.Unmarshal(data, &list); err != nil {
				return nil, fmt.Errorf("failed to parse payload: %w", err)
			}

			objects = list.Objects
		case objectType != "":
			objects = []json.RawMessage{json.RawMessage(data)}
		default:
			return nil, ErrUnsupportedPayload
		}
	default:
		return nil, ErrUnsupportedPayload
	}

	if len(objects) == 0 {
		return nil, ErrNoObjectsInPayload
	}

	if version == taxii2.Version20 {
		return taxii2.Bundle{
			Type:        "bundle",
			ID:          "bundle--" + uuid.NewString(),
			SpecVersion: string(taxii2.Version20),
			Objects:     objects,
		}, nil
	}

	return taxii2.Envelope{Objects: objects}, nil
}
