package common

// Cookie names carrying the token pair between the browser and the server.
const (
	AccessTokenCookieName  = "access_token"
	RefreshTokenCookieName = "refresh_token"
)

// TokenTypeBearer is reported to clients alongside every issued pair.
const TokenTypeBearer = "Bearer"
