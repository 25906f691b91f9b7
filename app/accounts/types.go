package accounts

// Account is a named Miniflux server connection from the accounts registry.
// The token or password is read from the named environment variable so
// credentials never sit in the registry file itself.
type Account struct {
	Name        string `yaml:"name"`
	ServerURL   string `yaml:"server_url"`
	AuthMethod  string `yaml:"auth_method"`
	Username    string `yaml:"username"`
	TokenEnv    string `yaml:"token_env"`
	PasswordEnv string `yaml:"password_env"`
}

const (
	AuthMethodToken = "token"
	AuthMethodBasic = "basic"
)
