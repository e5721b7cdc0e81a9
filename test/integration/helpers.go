//go:build integration

package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	DiscoveryURL  string
	CollectionURL string
	Version       string
	Username      string
	Password      string
	Token         string
	BinaryPath    string
	Verbose       bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		DiscoveryURL:  os.Getenv("TAXII2_TEST_DISCOVERY_URL"),
		CollectionURL: os.Getenv("TAXII2_TEST_COLLECTION_URL"),
		Version:       envOr("TAXII2_TEST_VERSION", "2.1"),
		Username:      os.Getenv("TAXII2_TEST_USER"),
		Password:      os.Getenv("TAXII2_TEST_PASSWORD"),
		Token:         os.Getenv("TAXII2_TEST_TOKEN"),
		BinaryPath:    getBinaryPath(),
		Verbose:       os.Getenv("TAXII2_TEST_VERBOSE") == "true",
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return fallback
}

// getBinaryPath determines the path to the taxii2 binary
func getBinaryPath() string {
	if path := os.Getenv("TAXII2_BINARY_PATH"); path != "" {
		return path
	}

	// Try common locations
	candidates := []string{
		"../../taxii2",
		"./taxii2",
		"../taxii2",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "taxii2" // Fallback to PATH
}

// SkipIfMissingConfig skips test if required config is missing
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.DiscoveryURL == "" {
		t.Skip("TAXII2_TEST_DISCOVERY_URL not set, skipping integration test")
	}

	if _, err := exec.LookPath(config.BinaryPath); err != nil {
		t.Skipf("taxii2 binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// CommandRunner provides utilities for running taxii2 commands
type CommandRunner struct {
	config *TestConfig
	t      *testing.T
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{
		config: config,
		t:      t,
	}
}

// globalArgs returns the connection flags shared by every command.
func (runner *CommandRunner) globalArgs() []string {
	args := []string{"--version", runner.config.Version}

	if runner.config.Token != "" {
		args = append(args, "--token", runner.config.Token)
	}

	if runner.config.Username != "" {
		args = append(args, "--user", runner.config.Username, "--password", runner.config.Password)
	}

	return args
}

// Run executes a taxii2 command and returns output
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes a taxii2 command with stdin input
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	args = append(args, runner.globalArgs()...)

	// #nosec G204 -- the binary path and arguments come from the test configuration
	cmd := exec.Command(runner.config.BinaryPath, args...)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Stdin = strings.NewReader(input)

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// GenerateIndicator creates a unique STIX indicator for add tests
func GenerateIndicator() (string, string) {
	id := fmt.Sprintf("indicator--00000000-0000-4000-8000-%012d", time.Now().UnixNano()%1_000_000_000_000)
	now := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")

	object := fmt.Sprintf(`{"type":"indicator","spec_version":"2.1","id":"%s","created":"%s","modified":"%s",`+
		`"name":"integration test","pattern":"[ipv4-addr:value = '198.51.100.1']","pattern_type":"stix","valid_from":"%s"}`,
		id, now, now, now)

	return id, object
}
