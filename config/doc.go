// Package config loads client settings from a YAML file, a dotenv file and
// the environment.
//
// Keys are nested by section, for example transport.read_timeout. Every key
// can be overridden by an environment variable named after it with the
// ASYNCHTTP prefix, dots replaced by underscores:
//
//	ASYNCHTTP_TRANSPORT_READ_TIMEOUT=30s
//	ASYNCHTTP_CLIENT_MAX_RETRIES=5
//	ASYNCHTTP_LOG_LEVEL=debug
//
// Precedence, highest first: environment (including variables loaded from the
// dotenv file), config file, defaults.
package config
