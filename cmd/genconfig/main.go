// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/rs/zerolog/log"

	config "codeberg.org/pixivfe/markerscan/configs"
	"codeberg.org/pixivfe/markerscan/core/audit"
)

const (
	envOutputFile  = "deploy/.env.example"
	yamlOutputFile = "deploy/markerscan.yaml.example"
	filePerm       = 0o644
	dirPerm        = 0o755

	envFileHeader = `# markerscan configuration (via environment variables)
#
# Copy this file to .env and customize the values below. Variables already set
# in the environment take precedence over this file.
#
# This file was auto-generated using go run ./cmd/genconfig.

`
	yamlFileHeader = `# markerscan configuration (via configuration file)
#
# Copy this file to markerscan.yaml and customize the values below.
#
# This file was auto-generated using go run ./cmd/genconfig.
`
)

func main() {
	audit.SetDefaultLogger()

	if err := os.MkdirAll(filepath.Dir(envOutputFile), dirPerm); err != nil {
		log.Fatal().Err(err).Msg("Failed to create output directory")
	}

	write(envOutputFile, envFile())
	write(yamlOutputFile, yamlFile())
}

func write(path, content string) {
	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write example file")
	}

	log.Info().Str("path", path).Msg("Successfully generated example file")
}

// envFile renders every env-tagged field of the default configuration as a
// commented-out assignment, grouped by section.
func envFile() string {
	cfg := &config.Config{}
	cfg.SetDefaults()

	var sb strings.Builder
	sb.WriteString(envFileHeader)

	val := reflect.ValueOf(*cfg)
	typ := val.Type()

	// Iterate over the top-level struct fields.
	for i := range typ.NumField() {
		structField := typ.Field(i)
		structValue := val.Field(i)

		if structValue.Kind() != reflect.Struct || structField.Name == "Build" {
			continue
		}

		fmt.Fprintf(&sb, "## %s\n", structField.Name)

		innerTyp := structValue.Type()
		for j := range innerTyp.NumField() {
			tag, ok := innerTyp.Field(j).Tag.Lookup("env")
			if !ok {
				continue
			}

			envVarName := config.EnvPrefix + strings.Split(tag, ",")[0]
			value := structValue.Field(j)

			switch {
			case value.Kind() == reflect.Slice:
				parts := make([]string, value.Len())
				for k := range value.Len() {
					parts[k] = fmt.Sprint(value.Index(k).Interface())
				}

				fmt.Fprintf(&sb, "# %s=%s\n", envVarName, strings.Join(parts, ","))
			case value.Kind() == reflect.String && value.Len() == 0:
				// Omit the value to prompt user input.
				fmt.Fprintf(&sb, "# %s=\n", envVarName)
			default:
				fmt.Fprintf(&sb, "# %s=%v\n", envVarName, value.Interface())
			}
		}

		sb.WriteString("\n")
	}

	return sb.String()
}

// yamlFile renders the default configuration with every value commented out.
func yamlFile() string {
	cfg := &config.Config{}
	cfg.SetDefaults()

	// Worker count depends on the generating machine.
	cfg.Scan.Workers = 4

	content, err := cfg.YAML()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal config to YAML")
	}

	var sb strings.Builder
	sb.WriteString(yamlFileHeader)

	// Process the marshaled YAML line-by-line to create a clean template.
	for line := range strings.SplitSeq(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Top-level keys (e.g., "scan:") are treated as section headers.
		if !strings.HasPrefix(line, " ") {
			fmt.Fprintf(&sb, "\n%s\n", line)

			continue
		}

		// By default, comment out the line.
		indentSize := len(line) - len(strings.TrimLeft(line, " "))
		fmt.Fprintf(&sb, "%s# %s\n", strings.Repeat(" ", indentSize), trimmed)
	}

	return sb.String()
}
