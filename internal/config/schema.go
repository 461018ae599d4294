package config

import _ "embed"

// configSchema is the JSON schema every loaded configuration must satisfy.
//
//go:embed config-schema.json
var configSchema []byte
