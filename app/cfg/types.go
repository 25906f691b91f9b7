package cfg

type Cfg struct {
	// Miniflux server configuration
	ServerURL string
	APIToken  string
	Username  string
	Password  string

	// Accounts registry
	Account      string
	AccountsFile string

	// Application configuration
	DBPath       string
	Port         string
	SyncInterval int
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
