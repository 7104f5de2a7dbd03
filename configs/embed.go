// Package configs holds configuration templates embedded at build time, so
// they ship with every binary.
//
// The template is written by `filesearch config init`. Its values mirror
// internal/config NewConfig(); keep the two in step.
package configs

import _ "embed"

// ProjectConfigTemplate is the commented .filesearch.yaml template.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
