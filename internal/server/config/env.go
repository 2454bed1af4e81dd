package config

import "github.com/ilyakaznacheev/cleanenv"

// parseEnv overlays fields carrying an env tag. Unset variables leave the
// field untouched; a value that cannot be parsed panics.
func parseEnv(config *Config) {
	if err := cleanenv.ReadEnv(config); err != nil {
		panic(err)
	}
}
