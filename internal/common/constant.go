package common

// AuthorizationHeaderName carries "Bearer <token>" on API requests.
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName is echoed back on every HTTP response.
const RequestIDHeaderName = "X-Request-ID"

// TopEventsLimit caps the number of events reported in the admin summary.
const TopEventsLimit = 5
