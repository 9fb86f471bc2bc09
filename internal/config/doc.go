// Package config loads and saves the gtool YAML configuration.
//
// The file lives at $XDG_CONFIG_HOME/gtool/config.yaml by default. A missing
// file yields Default. Every key can be overridden with a GTOOL_<KEY>
// environment variable; list values are comma separated:
//
//	GTOOL_TIME_ZONE=Europe/Berlin
//	GTOOL_CALENDAR_IDS=primary,team@example.com
//	GTOOL_RETRY_BASE_DELAY=500ms
//
// ${VAR} references inside the file are expanded before parsing.
package config
