// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthLogoutSuccess      = "auth.logout_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthResetCodeSent      = "auth.reset_code_sent"
	KeyAuthCodeVerified       = "auth.code_verified"
	KeyAuthPasswordReset      = "auth.password_reset"
	KeyAuthPasswordUpdated    = "auth.password_updated"

	// Users
	KeyUserProfileUpdated = "user.profile_updated"
	KeyUserNotFound       = "user.not_found"

	// Products
	KeyProductCreated       = "product.created"
	KeyProductUpdated       = "product.updated"
	KeyProductStatusChanged = "product.status_changed"
	KeyProductNotFound      = "product.not_found"

	// Purchases
	KeyPurchaseSubmitted     = "purchase.submitted"
	KeyPurchaseNotFound      = "purchase.not_found"
	KeyPurchaseStatusUpdated = "purchase.status_updated"
	KeyPurchaseStatusSame    = "purchase.status_unchanged"

	// Payments
	KeyPaymentSuccess          = "payment.success"
	KeyPaymentAlreadyProcessed = "payment.already_processed"
	KeyPaymentRequiresAction   = "payment.requires_action"

	// Contacts
	KeyContactSubmitted = "contact.submitted"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// Rate limiting
	KeyRateLimitExceeded = "rate_limit.exceeded"

	// Routing
	KeyRouteNotFound = "route.not_found"
)
