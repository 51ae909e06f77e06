/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package middleware

import (
	"net/http"

	"github.com/krishna-kudari/chatService/internal/auth"
	"github.com/krishna-kudari/chatService/internal/nlog"
	"github.com/krishna-kudari/chatService/internal/service"
)

// AuthMiddleware resolves the credential of the request into a session and stores it in the request context.
// Requests without a valid credential go through unauthenticated, the operations decide what they may do.
func AuthMiddleware(authenticator auth.Authenticator, users service.UserService, logger nlog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := authenticator.FromRequest(r)
		if err != nil {
			logger.Logf("Discarding credential from %s: %v", r.RemoteAddr, err)
			session = nil
		}

		if session != nil {
			if err := users.EnsureUser(r.Context(), session); err != nil {
				logger.Logf("Could not record user %s: %v", session.UserID, err)
			}
			r = r.WithContext(auth.WithSession(r.Context(), session))
		}

		next.ServeHTTP(w, r)
	})
}
