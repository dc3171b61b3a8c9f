// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "gopkg.in/yaml.v3"

// Dump renders cfg as YAML with secrets masked.
func Dump(cfg AppConfig) ([]byte, error) {
	return yaml.Marshal(MaskSecrets(cfg))
}
