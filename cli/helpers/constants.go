package helpers

// ContextKey is a custom type for context keys to avoid string collisions
type ContextKey string

const (
	// ServiceKey is the context key for storing the storage service
	ServiceKey ContextKey = "storage_service"
)

// OutputFormat represents different output formats
type OutputFormat string

const (
	OutputFormatAuto OutputFormat = "auto"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatTUI  OutputFormat = "tui"
)

// Flag names shared by the root command and its subcommands.
const (
	FlagFormat     = "format"
	FlagConfigFile = "config-file"
	FlagAppName    = "app-name"
	FlagLogLevel   = "log-level"
	FlagLogJSON    = "log-json"
	FlagLogSource  = "log-source"
)

const DefaultAppName = "storagectl"
