package accounts

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

type registryFile struct {
	Accounts []Account `yaml:"accounts"`
}

// Registry holds the named server connections loaded from the accounts file.
type Registry struct {
	accounts map[string]*Account
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		accounts: make(map[string]*Account),
	}
}

// Load reads the registry file. A missing file is not an error; the registry
// just stays empty and connections come from flags or environment instead.
func (r *Registry) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read accounts file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse accounts file %s: %w", path, err)
	}

	parsed := make(map[string]*Account, len(file.Accounts))
	for i := range file.Accounts {
		account := file.Accounts[i]
		if err := validateAccount(&account); err != nil {
			return fmt.Errorf("invalid account in %s: %w", path, err)
		}
		if _, exists := parsed[account.Name]; exists {
			return fmt.Errorf("duplicate account name '%s' in %s", account.Name, path)
		}
		parsed[account.Name] = &account
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = parsed

	return nil
}

// Get returns the account with the given name.
func (r *Registry) Get(name string) (*Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[name]
	if !ok {
		return nil, fmt.Errorf("account '%s' not found", name)
	}
	return account, nil
}

// Count returns the number of loaded accounts.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}

// Credentials resolves the account's secret from its environment variable.
// Token accounts return (token, "", ""), basic accounts return
// ("", username, password).
func (a *Account) Credentials() (string, string, string, error) {
	switch a.AuthMethod {
	case AuthMethodToken:
		token := os.Getenv(a.TokenEnv)
		if token == "" {
			return "", "", "", fmt.Errorf("environment variable %s is not set for account '%s'", a.TokenEnv, a.Name)
		}
		return token, "", "", nil
	case AuthMethodBasic:
		password := os.Getenv(a.PasswordEnv)
		if password == "" {
			return "", "", "", fmt.Errorf("environment variable %s is not set for account '%s'", a.PasswordEnv, a.Name)
		}
		return "", a.Username, password, nil
	}
	return "", "", "", fmt.Errorf("unknown auth method '%s' for account '%s'", a.AuthMethod, a.Name)
}

func validateAccount(account *Account) error {
	if account.Name == "" {
		return fmt.Errorf("account name is required")
	}
	if account.ServerURL == "" {
		return fmt.Errorf("server_url is required for account '%s'", account.Name)
	}

	switch account.AuthMethod {
	case AuthMethodToken:
		if account.TokenEnv == "" {
			return fmt.Errorf("token_env is required for token account '%s'", account.Name)
		}
	case AuthMethodBasic:
		if account.Username == "" {
			return fmt.Errorf("username is required for basic account '%s'", account.Name)
		}
		if account.PasswordEnv == "" {
			return fmt.Errorf("password_env is required for basic account '%s'", account.Name)
		}
	default:
		return fmt.Errorf("auth_method of account '%s' must be '%s' or '%s'", account.Name, AuthMethodToken, AuthMethodBasic)
	}

	return nil
}
