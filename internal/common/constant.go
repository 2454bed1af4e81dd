package common

// Names shared by the HTTP server and the client.
const (
	// AuthorizationHeaderName carries "Bearer <access token>".
	AuthorizationHeaderName = "Authorization"
	// BearerPrefix is stripped from the Authorization header value.
	BearerPrefix = "Bearer "
	// RefreshTokenCookieName holds the refresh token on the browser side.
	RefreshTokenCookieName = "refreshToken"
	// SessionCookieName holds the signed server-side session id.
	SessionCookieName = "sid"
	// SessionAccessTokenKey is the session value mirroring the access token.
	SessionAccessTokenKey = "accessToken"
)
