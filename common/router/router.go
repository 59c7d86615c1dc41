package router

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/digioh-event-services/common/config"
	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/jwt"
	"github.com/digioh-event-services/common/logger"
	"github.com/digioh-event-services/common/metrics"
	"github.com/digioh-event-services/common/response"
)

// HandlerFunc is the signature shared by every service handler
type HandlerFunc func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Access is the authentication a route requires
type Access int

const (
	Public Access = iota
	Authenticated
	AdminOnly
)

// Identity headers set from the verified token. Client-supplied values are dropped.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
	HeaderRequestID = "X-Request-Id"
)

type route struct {
	method   string
	pattern  string
	segments []string
	access   Access
	handler  HandlerFunc
}

// Router dispatches API Gateway style requests to handlers.
// Patterns are relative to the /api prefix and use {name} for path parameters.
type Router struct {
	prefix         string
	routes         []route
	allowedOrigins []string
	log            *logger.Logger
}

// New builds a router. Tokens are signed and verified with cfg's JWT secret.
func New(cfg *config.AppConfig) *Router {
	jwt.Configure(cfg.JWTSecret, cfg.JWTExpiresIn)
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Router{
		prefix:         "/api",
		allowedOrigins: origins,
		log:            logger.Default().With("component", "router"),
	}
}

// Handle registers h for method and pattern
func (r *Router) Handle(method, pattern string, access Access, h HandlerFunc) {
	r.routes = append(r.routes, route{
		method:   method,
		pattern:  pattern,
		segments: split(pattern),
		access:   access,
		handler:  h,
	})
}

// Public registers a route that needs no token
func (r *Router) Public(method, pattern string, h HandlerFunc) {
	r.Handle(method, pattern, Public, h)
}

// Auth registers a route that needs a valid token
func (r *Router) Auth(method, pattern string, h HandlerFunc) {
	r.Handle(method, pattern, Authenticated, h)
}

// Admin registers a route that needs an admin token
func (r *Router) Admin(method, pattern string, h HandlerFunc) {
	r.Handle(method, pattern, AdminOnly, h)
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// match returns the path parameters when segments fit the route
func (rt route) match(segments []string) (map[string]string, bool) {
	if len(segments) != len(rt.segments) {
		return nil, false
	}
	params := map[string]string{}
	for i, want := range rt.segments {
		got := segments[i]
		if strings.HasPrefix(want, "{") && strings.HasSuffix(want, "}") {
			v, err := url.PathUnescape(got)
			if err != nil || v == "" {
				return nil, false
			}
			params[want[1:len(want)-1]] = v
			continue
		}
		if got != want {
			return nil, false
		}
	}
	return params, true
}

// lookup finds the route for method and path.
// Literal segments win over parameters, so /events/names is not /events/{id}.
func (r *Router) lookup(method, path string) (*route, map[string]string, int) {
	if !strings.HasPrefix(path, r.prefix+"/") {
		return nil, nil, http.StatusNotFound
	}
	segments := split(strings.TrimPrefix(path, r.prefix))

	status := http.StatusNotFound
	var best *route
	var bestParams map[string]string
	for i := range r.routes {
		rt := &r.routes[i]
		params, ok := rt.match(segments)
		if !ok {
			continue
		}
		if rt.method != method {
			status = http.StatusMethodNotAllowed
			continue
		}
		if best == nil || len(params) < len(bestParams) {
			best, bestParams = rt, params
		}
	}
	if best == nil {
		return nil, nil, status
	}
	return best, bestParams, http.StatusOK
}

func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// authenticate verifies the bearer token and writes the identity headers
func authenticate(request *events.APIGatewayProxyRequest, access Access) (*jwt.Claims, error) {
	for k := range request.Headers {
		switch http.CanonicalHeaderKey(k) {
		case HeaderUserID, HeaderUserEmail, HeaderUserRole:
			delete(request.Headers, k)
		}
	}
	if access == Public {
		return nil, nil
	}

	authHeader := header(request.Headers, "Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if authHeader == "" || token == "" || token == authHeader {
		return nil, apperrors.Unauthorized("Token is required")
	}
	claims, err := jwt.ValidateToken(token)
	if err != nil {
		if jwt.IsExpired(err) {
			return nil, apperrors.TokenExpired()
		}
		return nil, apperrors.InvalidToken()
	}
	if access == AdminOnly && !strings.EqualFold(claims.Role, jwt.RoleAdmin) {
		return nil, apperrors.AccessDenied()
	}

	request.Headers[HeaderUserID] = strconv.Itoa(claims.UserID)
	request.Headers[HeaderUserEmail] = claims.Email
	request.Headers[HeaderUserRole] = claims.Role
	return claims, nil
}

// Dispatch routes one request and always returns a response
func (r *Router) Dispatch(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	if request.Headers == nil {
		request.Headers = map[string]string{}
	}

	requestID := header(request.Headers, HeaderRequestID)
	if requestID == "" {
		requestID = request.RequestContext.RequestID
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	ctx = context.WithValue(ctx, logger.RequestIDKey, requestID)

	pattern := "unmatched"
	userID := 0
	resp, err := func() (events.APIGatewayProxyResponse, error) {
		if request.HTTPMethod == http.MethodOptions {
			return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}, nil
		}

		rt, params, status := r.lookup(request.HTTPMethod, request.Path)
		if rt == nil {
			if status == http.StatusMethodNotAllowed {
				return response.ErrorMessage(status, "Method not allowed")
			}
			return response.ErrorMessage(status, "Not Found")
		}
		pattern = rt.pattern

		claims, err := authenticate(&request, rt.access)
		if err != nil {
			return response.Error(err)
		}
		if claims != nil {
			userID = claims.UserID
			ctx = context.WithValue(ctx, logger.UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, logger.UserEmailKey, claims.Email)
		}

		request.PathParameters = params
		return rt.handler(ctx, request)
	}()
	if err != nil {
		resp, _ = response.Error(err)
	}

	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers[HeaderRequestID] = requestID
	r.cors(request, resp.Headers)

	elapsed := time.Since(start)
	metrics.ObserveRequest(request.HTTPMethod, pattern, resp.StatusCode, elapsed)
	r.log.LogRequest(logger.RequestLog{
		Method:       request.HTTPMethod,
		Path:         request.Path,
		Status:       resp.StatusCode,
		Duration:     elapsed,
		ClientIP:     clientIP(request),
		UserAgent:    header(request.Headers, "User-Agent"),
		RequestID:    requestID,
		UserID:       userID,
		ResponseSize: int64(len(resp.Body)),
	})
	return resp, nil
}

// HandleLambda is the aws-lambda-go entry point
func (r *Router) HandleLambda(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return r.Dispatch(ctx, request)
}

func (r *Router) cors(request events.APIGatewayProxyRequest, headers map[string]string) {
	origin := header(request.Headers, "Origin")
	allow := ""
	for _, o := range r.allowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			allow = o
			break
		}
	}
	if allow == "" {
		delete(headers, "Access-Control-Allow-Origin")
		return
	}
	if allow == "*" && origin != "" {
		allow = origin
	}
	headers["Access-Control-Allow-Origin"] = allow
	headers["Access-Control-Allow-Methods"] = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	headers["Access-Control-Expose-Headers"] = "Content-Disposition," + HeaderRequestID
}

func clientIP(request events.APIGatewayProxyRequest) string {
	if forwarded := header(request.Headers, "X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if ip := header(request.Headers, "X-Real-IP"); ip != "" {
		return ip
	}
	return request.RequestContext.Identity.SourceIP
}
