package middleware

// Keys set on the gin context by the auth middleware.
const (
	// SubjectKey holds the "sub" claim of the bearer token.
	SubjectKey = "subject"
	// AccessLevelKey holds the settings.AccessLevel granted by the token's role claim.
	AccessLevelKey = "access_level"
)
