package primary

import "context"

// TokenVerifier validates the bearer token presented by a calling service.
type TokenVerifier interface {
	VerifyTokenHMAC(ctx context.Context, token string) (bool, error)
}
