package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/interview-journey/backend/internal/apperr"
	"github.com/zhouzirui/interview-journey/backend/internal/auth"
	"github.com/zhouzirui/interview-journey/backend/pkg/utils"
)

// Authenticate resolves the caller's identity and stores it in the request
// context. The credential comes from "Authorization: Bearer <token>", or the
// access_token query parameter for WebSocket clients that cannot set headers.
func Authenticate(provider auth.Provider, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := bearerToken(r)
			if credential == "" {
				utils.RespondError(w, apperr.New(apperr.Unauthorized, "authentication required"))
				return
			}

			userID, err := provider.Resolve(r.Context(), credential)
			if err != nil {
				kind := apperr.KindOf(err)
				if kind != apperr.Unauthorized {
					logger.Error("identity provider failed", zap.Error(err))
				}
				utils.RespondError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}
