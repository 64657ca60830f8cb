// Configuration types
package types

// Config represents the complete application configuration
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Store    StoreConfig    `mapstructure:"store"`
	Groups   GroupsConfig   `mapstructure:"groups"`
	Builder  BuilderConfig  `mapstructure:"builder"`
	Identity IdentityConfig `mapstructure:"identity"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
	Path   string `mapstructure:"path"`
}

// StoreConfig selects the event backend. Backend is one of memory, badger,
// bolt or graviton.
type StoreConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	StatePath string `mapstructure:"state_path"`
}

type GroupsConfig struct {
	// Relay is the locator used when a group id is given without one.
	Relay            string `mapstructure:"relay"`
	VerifySignatures bool   `mapstructure:"verify_signatures"`
}

type BuilderConfig struct {
	Dedup string `mapstructure:"dedup"`
}

// IdentityConfig holds the signing key, hex or nsec.
type IdentityConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}
