package helpers

import (
	"os"

	"github.com/compozy/storagectl/cli/tui/models"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// isRunningInCI checks if we're running in a CI/CD environment
func isRunningInCI() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	ciVars := []string{
		"JENKINS_HOME",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"TRAVIS",
		"BUILDKITE",
		"DRONE",
		"TF_BUILD",           // Azure DevOps
		"APPVEYOR",           // AppVeyor
		"BITBUCKET_COMMIT",   // Bitbucket Pipelines
		"CODEBUILD_BUILD_ID", // AWS CodeBuild
		"TEAMCITY_VERSION",   // TeamCity
		"CONTINUOUS_INTEGRATION",
	}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// checkExplicitFormat reads the --format flag; auto and unknown values fall through to detection.
func checkExplicitFormat(cmd *cobra.Command) (models.Mode, bool) {
	format, err := cmd.Flags().GetString(FlagFormat)
	if err != nil {
		return models.ModeJSON, false
	}
	switch OutputFormat(format) {
	case OutputFormatJSON, OutputFormatYAML:
		return models.ModeJSON, true
	case OutputFormatTUI:
		return models.ModeTUI, true
	default:
		return models.ModeJSON, false
	}
}

// isInteractiveEnvironment checks both stdin and stdout are terminals outside CI.
func isInteractiveEnvironment() bool {
	if isRunningInCI() {
		return false
	}
	stdinIsTerminal := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	stdoutIsTerminal := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if !stdinIsTerminal || !stdoutIsTerminal {
		return false
	}
	term := os.Getenv("TERM")
	return term != "dumb" && term != ""
}

// DetectMode picks the output mode from --format, then from the environment.
func DetectMode(cmd *cobra.Command) models.Mode {
	if mode, found := checkExplicitFormat(cmd); found {
		return mode
	}
	if isInteractiveEnvironment() {
		return models.ModeTUI
	}
	return models.ModeJSON
}

// DetectFormat returns the concrete output format for the detected mode.
func DetectFormat(cmd *cobra.Command) OutputFormat {
	if format, err := cmd.Flags().GetString(FlagFormat); err == nil && OutputFormat(format) == OutputFormatYAML {
		return OutputFormatYAML
	}
	if DetectMode(cmd) == models.ModeTUI {
		return OutputFormatTUI
	}
	return OutputFormatJSON
}

// ShouldUseColor determines if colored output should be used
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	if isRunningInCI() {
		return false
	}
	term := os.Getenv("TERM")
	return term != "dumb" && term != ""
}
