package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2client"
	"github.com/spf13/cobra"
)

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "discover [URL]",
		Short: "Show the discovery resource of a server",
		Long:  "Fetch the discovery resource of a TAXII server and list its API roots",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			discoveryURL, err := urlArg(args)
			if err != nil {
				return err
			}

			config, err := newTAXIIConfig()
			if err != nil {
				return err
			}

			server, err := taxii2client.NewServer(discoveryURL, config)
			if err != nil {
				return err
			}
			defer closeQuietly(cmd, server)

			info, err := server.Info(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("failed to discover server: %w", err)
			}

			if handled, err := printStructured(cmd.OutOrStdout(), info); handled {
				return err
			}

			table := newTable(cmd.OutOrStdout(), "Property", "Value")
			_ = table.Append("Title", info.Title)
			_ = table.Append("Description", orNotAvailable(info.Description))
			_ = table.Append("Contact", orNotAvailable(info.Contact))
			_ = table.Append("Default", orNotAvailable(info.Default))
			_ = table.Append("API Roots", orNotAvailable(strings.Join(info.APIRoots, "\n")))

			for key, value := range info.CustomProperties {
				_ = table.Append(key, fmt.Sprint(value))
			}

			return renderTable(table)
		},
	}
}

// rootSummary is one row of the roots command.
type rootSummary struct {
	URL              string   `json:"url"                yaml:"url"`
	Default          bool     `json:"default"            yaml:"default"`
	Title            string   `json:"title"              yaml:"title"`
	Versions         []string `json:"versions"           yaml:"versions"`
	MaxContentLength int64    `json:"max_content_length" yaml:"max_content_length"`
}

// NewRootsCommand creates the roots command.
func NewRootsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "roots [URL]",
		Short: "List the API roots of a server",
		Long:  "Fetch the discovery resource and the information of every API root it lists",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			discoveryURL, err := urlArg(args)
			if err != nil {
				return err
			}

			config, err := newTAXIIConfig()
			if err != nil {
				return err
			}

			server, err := taxii2client.NewServer(discoveryURL, config)
			if err != nil {
				return err
			}
			defer closeQuietly(cmd, server)

			summaries, err := summarizeRoots(commandContext(cmd), server)
			if err != nil {
				return err
			}

			if handled, err := printStructured(cmd.OutOrStdout(), summaries); handled {
				return err
			}

			table := newTable(cmd.OutOrStdout(), "URL", "Default", "Title", "Versions", "Max Content Length")
			for _, summary := range summaries {
				_ = table.Append(summary.URL, yesNo(summary.Default), summary.Title,
					strings.Join(summary.Versions, ", "), strconv.FormatInt(summary.MaxContentLength, 10))
			}

			return renderTable(table)
		},
	}
}

func summarizeRoots(ctx context.Context, server taxii2.Server) ([]rootSummary, error) {
	roots, err := server.APIRoots(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list API roots: %w", err)
	}

	defaultRoot, err := server.Default(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find default API root: %w", err)
	}

	summaries := make([]rootSummary, 0, len(roots))

	for _, root := range roots {
		info, err := root.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get API root %s: %w", root.URL(), err)
		}

		summaries = append(summaries, rootSummary{
			URL:              root.URL(),
			Default:          defaultRoot != nil && root == defaultRoot,
			Title:            info.Title,
			Versions:         info.Versions,
			MaxContentLength: info.MaxContentLength,
		})
	}

	return summaries, nil
}

// NewCollectionsCommand creates the collections command.
func NewCollectionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "collections API_ROOT_URL",
		Aliases: []string{"colls"},
		Short:   "List the collections of an API root",
		Long:    "List every collection of an API root with its access flags and media types",
		Args:    cobra.ExactArgs(1),
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

			collections, err := root.Collections(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("failed to list collections: %w", err)
			}

			infos := make([]*taxii2.CollectionInfo, 0, len(collections))

			for _, collection := range collections {
				info, err := collection.Info(commandContext(cmd))
				if err != nil {
					return fmt.Errorf("failed to read collection %s: %w", collection.URL(), err)
				}

				infos = append(infos, info)
			}

			if handled, err := printStructured(cmd.OutOrStdout(), infos); handled {
				return err
			}

			if len(infos) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No collections found")

				return nil
			}

			table := newTable(cmd.OutOrStdout(), "ID", "Title", "Alias", "Read", "Write", "Media Types")
			for _, info := range infos {
				_ = table.Append(info.ID, info.Title, orNotAvailable(info.Alias), yesNo(info.CanRead),
					yesNo(info.CanWrite), orNotAvailable(strings.Join(info.MediaTypes, ", ")))
			}

			return renderTable(table)
		},
	}
}
