package config

// GlobalFlags contains the flags shared by every nitro command.
type GlobalFlags struct {
	// ConfigPath points at the server configuration file (YAML or TOML).
	ConfigPath string
	// DataDir overrides data_dir from the configuration file.
	DataDir  string
	Format   string
	LogLevel string
	Verbose  bool
	NoColor  bool
	JSON     bool

	Storage StorageFlags
	User    UserFlags
}

// StorageFlags holds storage command specific configuration.
type StorageFlags struct {
	// Force skips the interactive confirmation of destructive commands.
	Force bool
}

// UserFlags holds user command specific configuration.
type UserFlags struct {
	// PasswordStdin reads passwords from stdin instead of prompting.
	PasswordStdin bool
}

// Global is the shared instance of GlobalFlags
var Global = GlobalFlags{Format: "table"}
