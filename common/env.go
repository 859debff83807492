// Package common holds the names and wire types shared by the rewind
// server, its RPC client and the CLI.
package common

// Environment variable names for configuration.
const (
	// ConfigEnv points at an alternate config file.
	ConfigEnv = "REWIND_CONFIG"

	// RPCSecretEnv overrides the RPC bearer token.
	RPCSecretEnv = "REWIND_RPC_SECRET"

	// ServerEnv is the base URL ctl and watch connect to.
	ServerEnv = "REWIND_SERVER"

	// DebugEnv enables debug logging.
	DebugEnv = "REWIND_DEBUG"
)
