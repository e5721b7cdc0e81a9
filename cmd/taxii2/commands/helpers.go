package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"

	"github.com/fivetwenty-io/taxii2-client/pkg/taxii2"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Common string constants used throughout the commands package.
const (
	NotAvailable = "N/A"
	Yes          = "yes"
	No           = "no"

	// Output formats.
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"

	// JSON formatting.
	defaultJSONIndent = 2

	// promptValue asks for a secret on the terminal.
	promptValue = "-"
)

// Common static errors used throughout the commands package.
var (
	ErrURLRequired         = errors.New("a URL is required (pass it as an argument or use --url)")
	ErrInvalidMatchFilter  = errors.New("invalid match filter, expected key=value")
	ErrNoObjectsInPayload  = errors.New("payload holds no STIX objects")
	ErrUnsupportedPayload  = errors.New("payload must be a STIX object, a list of objects, a bundle or an envelope")
	ErrStatusNotComplete   = errors.New("status did not complete before the timeout")
	ErrPasswordPromptNoTTY = errors.New("cannot prompt for a password: stdin is not a terminal")
)

// newTAXIIConfig builds the library configuration from flags, environment
// and the config file.
func newTAXIIConfig() (*taxii2.Config, error) {
	version, err := taxii2.ParseVersion(viper.GetString("version"))
	if err != nil {
		return nil, err
	}

	password := viper.GetString("password")
	if password == promptValue {
		password, err = readPassword("Password: ")
		if err != nil {
			return nil, err
		}
	}

	config := &taxii2.Config{
		Version:       version,
		Username:      viper.GetString("user"),
		Password:      password,
		Token:         viper.GetString("token"),
		SkipTLSVerify: viper.GetBool("skip_tls_verify"),
	}

	if viper.GetBool("verbose") {
		config.Debug = true
		config.Logger = taxii2.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	return config, nil
}

func readPassword(prompt string) (string, error) {
	// #nosec G115 -- file descriptors fit in an int
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		return "", ErrPasswordPromptNoTTY
	}

	fmt.Fprint(os.Stderr, prompt)

	bytePassword, err := term.ReadPassword(fd)

	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(bytePassword), nil
}

// urlArg returns args[0], falling back to the --url setting.
func urlArg(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}

	if url := viper.GetString("url"); url != "" {
		return url, nil
	}

	return "", ErrURLRequired
}

// printStructured writes v as JSON or YAML when that output format is
// selected and reports whether it did.
func printStructured(w io.Writer, v interface{}) (bool, error) {
	switch viper.GetString("output") {
	case OutputFormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

		return true, encoder.Encode(v)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return true, encoder.Encode(v)
	default:
		return false, nil
	}
}

func structuredOutput() bool {
	output := viper.GetString("output")

	return output == OutputFormatJSON || output == OutputFormatYAML
}

// printRaw writes a raw TAXII payload. Tables are not meaningful for
// arbitrary payloads, so anything other than yaml prints JSON.
func printRaw(w io.Writer, raw json.RawMessage) error {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if viper.GetString("output") == OutputFormatYAML {
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(value)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

	return encoder.Encode(value)
}

func newTable(w io.Writer, headers ...interface{}) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(headers...)

	return table
}

func renderTable(table *tablewriter.Table) error {
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func yesNo(value bool) string {
	if value {
		return Yes
	}

	return No
}

func orNotAvailable(value string) string {
	if value == "" {
		return NotAvailable
	}

	return value
}

func closeQuietly(cmd *cobra.Command, endpoint taxii2.Endpoint) {
	if err := endpoint.Close(); err != nil && viper.GetBool("verbose") {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close connection: %v\n", err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
