package secrets

import "context"

// Provider abstracts the secrets backend that holds per-chain oracle
// feed credentials. The oracle config resolver is the main consumer.
type Provider interface {
	// GetSecret retrieves a secret by name (e.g. "prod/oracle/1") and
	// returns its JSON payload as a key-value map.
	GetSecret(ctx context.Context, key string) (map[string]string, error)

	// ListSecrets returns the names of all secrets under the given
	// prefix, e.g. every configured chain for an environment.
	ListSecrets(ctx context.Context, prefix string) ([]string, error)
}
