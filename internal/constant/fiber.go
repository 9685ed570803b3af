package constant

const (
	ContextKeyRequestID = "requestid"
	ContextKeyActor     = "actor"

	RequestIDHeader = "X-Acti-Request-ID"

	IdempotencyHeader    = "X-Acti-Idempotency"
	IdempotencyKeyHeader = "Idempotency-Key"

	IdempotencyKeyLocalsKey   = "idempotencyKey"
	IdempotencyKeyLengthLimit = 128
)
