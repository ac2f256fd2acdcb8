/*
Package config provides type-safe configuration extraction from map[string]any
and the dispatcher Settings built on top of it.

# Basic Usage

	cfg := config.New(map[string]any{
	    "retry_delay":   "250ms",
	    "retry_attempts": 5,
	})

	delay := cfg.Duration("retry_delay", time.Second) // 250ms
	n := cfg.Int("retry_attempts", 3)                 // 5

All accessors return the default value if the key is missing, the value has
the wrong type, or the conversion would lose precision.

# File Loading

	settings, err := config.LoadSettings("dispatch.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	pub := dispatch.New(dispatch.WithSettings(settings))

LoadSettings reads the "dispatch" section when present:

	dispatch:
	  max_concurrent_handlers: 4
	  retry_attempts: 5
	  retry_delay: 200ms
	  critical_event_types: [assessment.completed]
	  dead_letter_path: ${DISPATCH_DLQ_PATH:-dead_letters.db}

Environment references are expanded before the file is parsed.

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
