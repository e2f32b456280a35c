// Package config loads runtime configuration for the KnowBrain CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional YAML file, selected via -c/-config, KNOWBRAIN_CONFIG, or the
//     default search paths (knowbrain.yaml, knowbrain.yml).
//  3. KNOWBRAIN_* environment variables (e.g. KNOWBRAIN_SERVER_BASE_URL).
//  4. Command-line flags (see parseFlags), which override everything.
//
// Supported flags
//
//	-a string   base URL of the backend server
//	-w string   websocket URL of the change-event endpoint
//	-t int      request timeout (seconds)
//	-p int      notes per page
//
// # YAML schema
//
//	server_base_url: "http://127.0.0.1:8080"
//	websocket_url: ""            # derived from server_base_url when empty
//	request_timeout: 15s
//	page_size: 20
//	log_level: info
//
// Primary API
//
//   - type Config                        — the resolved runtime settings
//   - func LoadConfig() (*Config, error) — applies defaults, file, env, flags
//   - func (*Config) LoadDefaults()      — sets sensible defaults
package config
