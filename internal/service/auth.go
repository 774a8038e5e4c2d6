package service

import (
	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/deppfellow/questionnaire-validator/internal/server"
)

type AuthService struct {
	server *server.Server
}

// NewAuthService configures the Clerk SDK when a secret key is set.
// Without one the API runs unauthenticated.
func NewAuthService(s *server.Server) *AuthService {
	if s.Config.Auth.Enabled() {
		clerk.SetKey(s.Config.Auth.SecretKey)
	} else {
		s.Logger.Warn().Msg("auth.secret_key is not set, the API is unauthenticated")
	}
	return &AuthService{server: s}
}

