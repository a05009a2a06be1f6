package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain via context
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldFileID is the identifier of the file being stored or deleted
	FieldFileID = "file_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldBucket is the target bucket
	FieldBucket = "bucket"

	// FieldKey is the object storage key
	FieldKey = "key"
)

// Metric fields, used for aggregation and alerting
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
