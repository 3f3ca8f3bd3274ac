package utils

// ErrorLogFormat defines the formatting string for error log messages.
const ErrorLogFormat = "Error: %v"

const (
	// ApplicationName names the binary and the configuration directory.
	ApplicationName = "ebixref"
	// ConfigFileName is the configuration file name inside the global directory.
	ConfigFileName = "config.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding global configuration.
	GlobalConfigDirectoryName = ".ebixref"
	// LocalConfigFileName is the configuration file looked up in the working directory.
	LocalConfigFileName = ".ebixref.yaml"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
)
