package dto

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RecordUsageRequest represents a request to charge a domain against the free tier
type RecordUsageRequest struct {
	Domain string `json:"domain" binding:"required"`
	URL    string `json:"url"`
}

// CheckoutRequest represents a request to start a subscription checkout
type CheckoutRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// AuthResponse represents an authentication response
type AuthResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	IsPremium   bool     `json:"is_premium"`
	User        UserInfo `json:"user"`
}

// UserInfo represents user information in response
type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// UserResponse represents a user response
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
	IsPremium bool   `json:"is_premium"`
}

// SubscriptionResponse represents a subscription snapshot
type SubscriptionResponse struct {
	Status             string `json:"status"`
	Plan               string `json:"plan"`
	CurrentPeriodStart string `json:"current_period_start"`
	CurrentPeriodEnd   string `json:"current_period_end"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
}

// RedirectResponse carries a provider-hosted page URL (checkout, billing portal)
type RedirectResponse struct {
	URL string `json:"url"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
