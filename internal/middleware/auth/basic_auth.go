package auth

import (
	"crypto/subtle"
	"net/http"
)

// BasicAuth закрывает админские маршруты профилей наценок. Логин и пароль
// сравниваются за постоянное время, чтобы по времени ответа нельзя было
// подобрать длину совпадения.
func BasicAuth(login, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotLogin, gotPassword, ok := r.BasicAuth()
			if !ok || !secureEqual(gotLogin, login) || !secureEqual(gotPassword, password) {
				w.Header().Set("WWW-Authenticate", `Basic realm="Markup Admin"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func secureEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
