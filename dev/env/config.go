package devenv

// PortalTestConfig is read from `dev/.state/isu_config.json5` by the tests
// that talk to the live portal. They are skipped when it does not exist.
type PortalTestConfig struct {
	BaseUrl  string `json:"base_url"`
	Login    string `json:"login"`
	Password string `json:"password"`
}
