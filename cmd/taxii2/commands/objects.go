package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2client"
	"github.com/spf13/cobra"
)

// stixSummary holds the common properties shown in object tables.
type stixSummary struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
	// manifest entries
	DateAdded string `json:"date_added"`
	Version   string `json:"version"`
}

// objectList is the part of bundles, envelopes and manifests the CLI reads.
type objectList struct {
	Objects []json.RawMessage `json:"objects"`
}

func openCollection(collectionURL string) (taxii2.Collection, error) {
	config, err := newTAXIIConfig()
	if err != nil {
		return nil, err
	}

	return taxii2client.NewCollection(collectionURL, config)
}

// parseFilters builds filters from the --match, --added-after and --limit flags.
func parseFilters(matches []string, addedAfter string, limit int) (taxii2.Filters, error) {
	filters := taxii2.NewFilters()

	for _, match := range matches {
		key, value, found := strings.Cut(match, "=")
		if !found || key == "" || value == "" {
			return nil, fmt.Errorf("%w: '%s'", ErrInvalidMatchFilter, match)
		}

		filters.WithMatch(key, strings.Split(value, ",")...)
	}

	if addedAfter != "" {
		ts, err := taxii2.ParseTimestamp(addedAfter)
		if err != nil {
			return nil, err
		}

		filters.WithAddedAfter(ts)
	}

	if limit > 0 {
		filters.WithLimit(limit)
	}

	return filters, nil
}

func printObjects(cmd *cobra.Command, raw json.RawMessage) error {
	if structuredOutput() {
		return printRaw(cmd.OutOrStdout(), raw)
	}

	var list objectList
	if err := json.Unmarshal(raw, &list); err != nil {
		return fmt.Errorf("failed to decode objects: %w", err)
	}

	if len(list.Objects) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No objects found")

		return nil
	}

	table := newTable(cmd.OutOrStdout(), "Type", "ID", "Created", "Modified")

	for _, object := range list.Objects {
		var summary stixSummary
		if err := json.Unmarshal(object, &summary); err != nil {
			return fmt.Errorf("failed to decode object: %w", err)
		}

		_ = table.Append(orNotAvailable(summary.Type), summary.ID, orNotAvailable(summary.Created), orNotAvailable(summary.Modified))
	}

	return renderTable(table)
}

// NewObjectsCommand creates the objects command.
func NewObjectsCommand() *cobra.Command {
	var (
		matches    []string
		addedAfter string
		limit      int
		all        bool
		perRequest int
	)

	cmd := &cobra.Command{
		Use:   "objects COLLECTION_URL",
		Short: "Get objects from a collection",
		Long:  "Get STIX objects from a collection, optionally filtered and paged through",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilters(matches, addedAfter, limit)
			if err != nil {
				return err
			}

			collection, err := openCollection(args[0])
			if err != nil {
				return err
			}
			defer closeQuietly(cmd, collection)

			ctx := commandContext(cmd)

			if !all {
				raw, err := collection.GetObjects(ctx, filters)
				if err != nil {
					return fmt.Errorf("failed to get objects: %w", err)
				}

				return printObjects(cmd, raw)
			}

			combined := objectList{Objects: []json.RawMessage{}}

			for page, err := range collection.ObjectPages(ctx, perRequest, filters) {
				if err != nil {
					return fmt.Errorf("failed to get objects: %w", err)
				}

				var list objectList
				if err := json.Unmarshal(page, &list); err != nil {
					return fmt.Errorf("failed to decode page: %w", err)
				}

				combined.Objects = append(combined.Objects, list.Objects...)
			}

			raw, err := json.Marshal(combined)
			if err != nil {
				return fmt.Errorf("failed to encode objects: %w", err)
			}

			return printObjects(cmd, raw)
		},
	}

	cmd.Flags().StringArrayVarP(&matches, "match", "m", nil, "match filter as key=value[,value] (repeatable)")
	cmd.Flags().StringVar(&addedAfter, "added-after", "", "only objects added after this timestamp")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of objects per response (TAXII 2.1)")
	cmd.Flags().BoolVar(&all, "all", false, "page through every object")
	cmd.Flags().IntVar(&perRequest, "per-request", 0, "page size used with --all")

	return cmd
}

// NewObjectCommand creates the object command.
func NewObjectCommand() *cobra.Command {
	var versions []string

	cmd := &cobra.Command{
		Use:   "object COLLECTION_URL OBJECT_ID",
		Short: "Get one object from a collection",
		Long:  "Get every stored version of a STIX object, or the versions selected with --match-version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := openCollection(args[0])
			if err != nil {
				return err
			}
			defer closeQuietly(cmd, collection)

			filters := taxii2.NewFilters()
			if len(versions) > 0 {
				filters[taxii2.FilterVersion] = versions
			}

			raw, err := collection.GetObject(commandContext(cmd), args[1], filters)
			if err != nil {
				return fmt.Errorf("failed to get object: %w", err)
			}

			return printObjects(cmd, raw)
		},
	}

	cmd.Flags().StringSliceVar(&versions, "match-version", nil, "versions to return (all, first, last or a timestamp)")

	return cmd
}

// NewManifestCommand creates the manifest command.
func NewManifestCommand() *cobra.Command {
	var (
		matches    []string
		addedAfter string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "manifest COLLECTION_URL",
		Short: "Get the manifest of a collection",
		Long:  "List the manifest entries of a collection: object ids, versions and when they were added",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := parseFilters(matches, addedAfter, limit)
			if err != nil {
				return err
			}

			collection, err := openCollection(args[0])
			if err != nil {
				return err
			}
			defer closeQuietly(cmd, collection)

			raw, err := collection.GetManifest(commandContext(cmd), filters)
			if err != nil {
				return fmt.Errorf("failed to get manifest: %w", err)
			}

			if structuredOutput() {
				return printRaw(cmd.OutOrStdout(), raw)
			}

			var list objectList
			if err := json.Unmarshal(raw, &list); err != nil {
				return fmt.Errorf("failed to decode manifest: %w", err)
			}

			table := newTable(cmd.OutOrStdout(), "ID", "Date Added", "Version")

			for _, entry := range list.Objects {
				var summary stixSummary
				if err := json.Unmarshal(entry, &summary); err != nil {
					return fmt.Errorf("failed to decode manifest entry: %w", err)
				}

				_ = table.Append(summary.ID, orNotAvailable(summary.DateAdded), orNotAvailable(summary.Version))
			}

			return renderTable(table)
		},
	}

	cmd.Flags().StringArrayVarP(&matches, "match", "m", nil, "match filter as key=value[,value] (repeatable)")
	cmd.Flags().StringVar(&addedAfter, "added-after", "", "only entries added after this timestamp")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries (TAXII 2.1)")

	return cmd
}

// NewVersionsCommand creates the versions command.
func NewVersionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions COLLECTION_URL OBJECT_ID",
		Short: "List the versions of an object (TAXII 2.1)",
		Long:  "List every version of a STIX object stored in a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := openCollection(args[0])
			if err != nil {
				return err
			}
			defer closeQuietly(cmd, collection)

			raw, err := collection.ObjectVersions(commandContext(cmd), args[1], nil)
			if err != nil {
				return fmt.Errorf("failed to list versions: %w", err)
			}

			return printRaw(cmd.OutOrStdout(), raw)
		},
	}
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	var (
		versions []string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "delete COLLECTION_URL OBJECT_ID",
		Short: "Delete an object from a collection (TAXII 2.1)",
		Long:  "Delete a STIX object, or selected versions of it, from a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			objectID := args[1]

			if !force {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Really delete object '%s'? (y/N): ", objectID)

				var response string

				_, _ = fmt.Fscanln(cmd.InOrStdin(), &response)
				if response != "y" && response != "Y" {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")

					return nil
				}
			}

			collection, err := openCollection(args[0])
			if err != nil {
				return err
			}
			defer closeQuietly(cmd, collection)

			filters := taxii2.NewFilters()
			if len(versions) > 0 {
				filters[taxii2.FilterVersion] = versions
			}

			if _, err := collection.DeleteObject(commandContext(cmd), objectID, filters); err != nil {
				return fmt.Errorf("failed to delete object: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Successfully deleted object '%s'\n", objectID)

			return nil
		},
	}

	cmd.Flags().StringSliceVar(&versions, "match-version", nil, "versions to delete")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip confirmation")

	return cmd
}
