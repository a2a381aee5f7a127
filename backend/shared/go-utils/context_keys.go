package utils

// ctxKey is unexported to prevent collisions.
type ctxKey string

// CtxKeyRequestID stores the X-Request-ID assigned to an inbound request.
const CtxKeyRequestID ctxKey = "requestID"
