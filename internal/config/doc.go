// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

/*
Package config loads Auditrail configuration with Koanf v2.

Sources are layered, later ones winning:

 1. Defaults from defaultConfig()
 2. An optional YAML file: $CONFIG_PATH, then config.yaml, config.yml,
    /etc/auditrail/config.yaml
 3. Environment variables listed in envMappings

Only mapped environment variables are read, so unrelated variables never
leak into the configuration. Comma-separated values are split for slice
settings such as AUDIT_REGULATIONS and CORS_ORIGINS.

Example config.yaml:

	server:
	  port: 8080
	database:
	  driver: postgres
	  dsn: postgres://auditrail:secret@db:5432/auditrail?sslmode=disable
	audit:
	  default_retention_days: 365
	  cleanup_interval: 6h
	security:
	  jwt_secret: change-me-to-a-32-character-secret!!
	nats:
	  enabled: true
	  embedded_server: true

Load validates the result; see Config.Validate.
*/
package config
