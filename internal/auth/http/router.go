package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/liftlog/internal/auth/service"
	"github.com/aussiebroadwan/liftlog/pkg/httpx"
	"github.com/aussiebroadwan/liftlog/pkg/slogx"

	_ "github.com/aussiebroadwan/liftlog/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion   string
	startTime      time.Time
	logger         *slog.Logger
	pinger         Pinger
	challengeStore string
	cookies        CookieConfig

	TokenService         *service.TokenService
	OTPService           *service.OTPService
	SignedPayloadService *service.SignedPayloadService
	PrincipalService     *service.PrincipalService
}

// NewRouter creates a Router. challengeStore names the driver holding
// outstanding codes; it is reported by /readyz.
func NewRouter(
	buildVersion string,
	pinger Pinger,
	challengeStore string,
	cookies CookieConfig,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		buildVersion:   buildVersion,
		startTime:      time.Now(),
		logger:         logger,
		pinger:         pinger,
		challengeStore: challengeStore,
		cookies:        cookies,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.LimitBody(httpx.DefaultMaxBodyBytes),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOTP()
	r.registerSignedPayload()
	r.registerSession()
	r.registerSystem()

	r.Mux.Handle("GET /swagger/",
		httpx.Chain(httpSwagger.Handler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			LiftLog Authentication Service API
//	@version		0.1.0
//	@description	Passwordless and signed-payload login for LiftLog with a dual-token session.
//	@description
//	@description				Access tokens are short-lived HS256 JWTs sent as bearer tokens. Refresh tokens live only in the HttpOnly refresh_token cookie.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/liftlog
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOTP() {
	h := &OTPHandler{OTPService: r.OTPService, Cookies: r.cookies}

	// All three steps are brute-force targets - strict rate limit by IP
	r.Mux.Handle("POST /auth/send-otp",
		httpx.Chain(http.HandlerFunc(h.HandleSendOTP),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/verify-otp",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyOTP),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/complete-registration",
		httpx.Chain(http.HandlerFunc(h.HandleCompleteRegistration),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSignedPayload() {
	h := &SignedPayloadHandler{SignedPayloadService: r.SignedPayloadService, Cookies: r.cookies}

	r.Mux.Handle("POST /signed-payload-auth",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSession() {
	// POST /refresh-token - moderate rate limit, the client refreshes at most every few minutes
	r.Mux.Handle("POST /refresh-token",
		httpx.Chain(&RefreshHandler{TokenService: r.TokenService, Cookies: r.cookies},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /logout",
		httpx.Chain(&LogoutHandler{Cookies: r.cookies},
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// Authenticated endpoint - lenient rate limit by subject
	r.Mux.Handle("GET /auth/me",
		httpx.Chain(&MeHandler{PrincipalService: r.PrincipalService},
			httpx.AuthnMiddleware(r.TokenService.AccessVerifier()),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - public rate limits (monitoring systems may poll frequently)
	h := &HealthHandler{
		StartTime:      r.startTime,
		Version:        r.buildVersion,
		Store:          r.pinger,
		ChallengeStore: r.challengeStore,
	}

	r.Mux.Handle("GET /livez",
		httpx.Chain(http.HandlerFunc(h.HandleLivez),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(http.HandlerFunc(h.HandleReadyz),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
