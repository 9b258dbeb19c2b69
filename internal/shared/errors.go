package shared

import "fmt"

var (
	// Configuration errors (fatal at startup only)
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Token lifecycle errors
	ErrNotConnected   = fmt.Errorf("spotify not connected")
	ErrReauthRequired = fmt.Errorf("reauthorization required")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")
	ErrExchangeFailed = fmt.Errorf("token exchange failed")

	// API and service errors
	ErrAPIRequest    = fmt.Errorf("API request failed")
	ErrRateLimited   = fmt.Errorf("rate limit exceeded")
	ErrTrackNotFound = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
