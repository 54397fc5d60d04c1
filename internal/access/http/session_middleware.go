package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/openspace-ehr/phiguard/internal/audit/domain"
	"github.com/openspace-ehr/phiguard/internal/httputil"
	"github.com/openspace-ehr/phiguard/internal/session"
)

// sessionIssuedKey marks a session as issued by this server so its cookie is
// adopted on later requests.
const sessionIssuedKey = "session_issued_at"

// SessionCookieConfig controls the session cookie written by SessionMiddleware.
type SessionCookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// SessionMiddleware binds every request to a server-side session. The session
// identifier travels in an HttpOnly cookie. A cookie is adopted only when the
// store already holds that session; a missing, malformed or unknown identifier
// gets a fresh random one, so clients cannot choose their session identifier.
// The session is available to handlers through session.FromContext.
func SessionMiddleware(store session.Store, cfg SessionCookieConfig, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := c.Cookie(cfg.Name)
		issued := err == nil && uuid.Validate(id) == nil
		if issued {
			issued, err = store.Exists(ctx, id)
			if err != nil {
				httputil.HandleErrorGin(c, err, logger)
				c.Abort()
				return
			}
		}
		if !issued {
			id = uuid.NewString()
			stamp := []byte(time.Now().UTC().Format(time.RFC3339))
			if err := store.Set(ctx, id, sessionIssuedKey, stamp); err != nil {
				httputil.HandleErrorGin(c, err, logger)
				c.Abort()
				return
			}
		}

		sess, err := session.New(id, store)
		if err != nil {
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		http.SetCookie(c.Writer, &http.Cookie{
			Name:     cfg.Name,
			Value:    id,
			Path:     "/",
			MaxAge:   int(cfg.TTL.Seconds()),
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteStrictMode,
		})

		c.Request = c.Request.WithContext(session.WithSession(ctx, sess))
		c.Next()
	}
}

// ActorMiddleware records who is acting for audit events. The user identity
// is whatever the upstream authenticator put in header.
func ActorMiddleware(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := auditDomain.Actor{
			ID:        c.GetHeader(header),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Request = c.Request.WithContext(auditDomain.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}
