// Package config handles configuration loading for coven-mailer.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from COVEN_MAILER_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/coven/mailer.toml
//  3. ~/.config/coven/mailer.toml
//
// Files ending in .yaml or .yml are read as YAML; anything else as TOML.
//
// # Environment Variable Expansion
//
// Secrets usually live in the environment:
//
//	[smtp]
//	username = "${SMTP_EMAIL}"
//	password = "${SMTP_PASSWORD}"
//
// Unset variables expand to the empty string and then fail validation.
//
// # Sections
//
//	[matrix]    homeserver, user_id, access_token
//	[smtp]      host (smtp.gmail.com), port (587), username, password,
//	            from (= username), subject, timeout ("30s")
//	[database]  path ($XDG_DATA_HOME/coven/logs.db)
//	[bot]       allowed_rooms, command_prefix, start_command ("/start"),
//	            auto_join, typing_indicator
//	[metrics]   enabled, addr ("127.0.0.1:9464")
//	[logging]   level (info), format (text|json)
package config
