package config

// ManagerInterface is what callers need from a configuration source.
type ManagerInterface interface {
	Path() string
	Load() (*Config, error)
	Save(*Config) error
}

var _ ManagerInterface = (*Manager)(nil)
