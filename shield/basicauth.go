package shield

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hazyhaar/vidharvest/kit"
)

// BasicAuth protects every path except the excluded prefixes with HTTP Basic
// Auth against a single user and a bcrypt hash. The authenticated user is
// stored with kit.WithUserID.
func BasicAuth(user, hash, realm string, exclude ...string) func(http.Handler) http.Handler {
	challenge := `Basic realm="` + strings.ReplaceAll(realm, `"`, "") + `"`
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range exclude {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			u, pass, ok := r.BasicAuth()
			userOK := subtle.ConstantTimeCompare([]byte(u), []byte(user)) == 1
			if !ok || !userOK || bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) != nil {
				GetLogger(r.Context()).Warn("shield: basic auth rejected", "user", u)
				w.Header().Set("WWW-Authenticate", challenge)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(kit.WithUserID(r.Context(), u)))
		})
	}
}
