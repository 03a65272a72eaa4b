package middleware

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/gorilla/securecookie"
	"github.com/rahul4469/meal-analyzer/context"
)

type SessionMiddleware struct {
	cookies    *securecookie.SecureCookie
	cookieName string
	maxAge     time.Duration
	secure     bool
}

func NewSessionMiddleware(hashKey []byte, cookieName string, maxAge time.Duration, secure bool) *SessionMiddleware {
	sc := securecookie.New(hashKey, nil)
	sc.MaxAge(int(maxAge.Seconds()))
	return &SessionMiddleware{
		cookies:    sc,
		cookieName: cookieName,
		maxAge:     maxAge,
		secure:     secure,
	}
}

// SetSession loads the browser session id from the signed cookie and
// stores it in the request context, issuing a new id when the cookie is
// missing, expired or tampered with.
// This middleware should run on ALL routes that touch the workflow.
func (m *SessionMiddleware) SetSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := m.readSessionID(r)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		// Re-issue on every request so the cookie expiry slides with activity
		encoded, err := m.cookies.Encode(m.cookieName, sessionID)
		if err != nil {
			log.Printf("Failed to encode session cookie: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    encoded,
			Path:     "/",
			MaxAge:   int(m.maxAge.Seconds()),
			HttpOnly: true,
			Secure:   m.secure,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.WithSessionID(r.Context(), sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionMiddleware) readSessionID(r *http.Request) string {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil {
		return ""
	}

	var sessionID string
	if err := m.cookies.Decode(m.cookieName, cookie.Value, &sessionID); err != nil {
		return ""
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return ""
	}
	return sessionID
}

// PlaintextHTTP tells the CSRF middleware the request arrived over plain
// HTTP. Only used outside production, where TLS terminates elsewhere or not at all.
func PlaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

// HELPER FUNCS --------------------------------------------

// SessionID is a helper function to get the current session id from any handler.
// Returns "" if SetSession did not run.
func SessionID(r *http.Request) string {
	return context.SessionID(r.Context())
}

// MustSessionID is like SessionID but panics if no session is found.
// Only use this in handlers wrapped by SetSession.
func MustSessionID(r *http.Request) string {
	id := SessionID(r)
	if id == "" {
		panic("MustSessionID called without SetSession middleware")
	}
	return id
}
