package config

import _ "embed"

//go:embed default.toml
var defaultProfileText string
