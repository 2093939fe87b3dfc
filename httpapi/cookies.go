package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/gorilla/mux"
)

func (a *API) setSessionCookies(w http.ResponseWriter, pair *authgate.TokenPair) {
	a.setCookie(w, accessCookie, pair.AccessToken, pair.AccessExpiresAt)
	if pair.RefreshToken != "" {
		a.setCookie(w, refreshCookie, pair.RefreshToken, pair.RefreshExpiresAt)
	}
}

func (a *API) setCookie(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *API) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func muxID(r *http.Request) string {
	return mux.Vars(r)["id"]
}
