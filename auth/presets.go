package auth

import (
	"github.com/caarlos0/env/v11"

	"github.com/alexjbarnes/apiconfig"
)

// OneFlowAPIKeyHeader is the header OneFlow reads API keys from.
const OneFlowAPIKeyHeader = "x-oneflow-api-token"

// DefaultTripletexTestHostname is the Tripletex sandbox host.
const DefaultTripletexTestHostname = "https://api-test.tripletex.tech"

// FikenEnv holds Fiken credentials from the environment.
type FikenEnv struct {
	AccessToken string `env:"FIKEN_ACCESS_TOKEN,required,notEmpty"`
}

// OneFlowEnv holds OneFlow credentials from the environment.
type OneFlowEnv struct {
	APIKey string `env:"ONEFLOW_API_KEY,required,notEmpty"`
}

// TripletexEnv holds Tripletex credentials from the environment.
type TripletexEnv struct {
	ConsumerToken string `env:"TRIPLETEX_TEST_CONSUMER_TOKEN,required,notEmpty"`
	EmployeeToken string `env:"TRIPLETEX_TEST_EMPLOYEE_TOKEN,required,notEmpty"`
	Hostname      string `env:"TRIPLETEX_HOSTNAME" envDefault:"https://api-test.tripletex.tech"`
	Version       string `env:"TRIPLETEX_VERSION" envDefault:"v2"`
	CompanyID     string `env:"TRIPLETEX_COMPANY_ID" envDefault:"0"`
}

func parseEnv[T any](name string) (*T, error) {
	cfg := new(T)
	if err := env.Parse(cfg); err != nil {
		return nil, apiconfig.Errorf(apiconfig.ErrMissingCredentials, "%s: parsing environment: %w", name, err)
	}
	return cfg, nil
}

// FikenFromEnv returns a bearer strategy for the Fiken API.
func FikenFromEnv(opts ...Option) (*BearerAuth, error) {
	cfg, err := parseEnv[FikenEnv]("fiken")
	if err != nil {
		return nil, err
	}
	return NewBearerAuth(cfg.AccessToken, opts...)
}

// OneFlowFromEnv returns an API key strategy for the OneFlow API.
func OneFlowFromEnv() (*APIKeyAuth, error) {
	cfg, err := parseEnv[OneFlowEnv]("oneflow")
	if err != nil {
		return nil, err
	}
	return NewAPIKeyHeaderAuth(cfg.APIKey, OneFlowAPIKeyHeader)
}

// TripletexFromEnv returns a session strategy for the Tripletex API.
// Options are applied after the ones derived from the environment.
func TripletexFromEnv(opts ...Option) (*TripletexSessionAuth, error) {
	cfg, err := parseEnv[TripletexEnv]("tripletex")
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithHostname(cfg.Hostname),
		WithVersion(cfg.Version),
		WithCompanyID(cfg.CompanyID),
	}
	return NewTripletexSessionAuth(cfg.ConsumerToken, cfg.EmployeeToken, append(base, opts...)...)
}
