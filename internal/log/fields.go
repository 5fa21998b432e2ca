package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldKey        = "key"
	FieldKeys       = "keys"
	FieldUser       = "user"
	FieldStore      = "store"
	FieldResource   = "resource"
	FieldID         = "id"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentAPI     = "api"
	ComponentSession = "session"
	ComponentCache   = "cache"
	ComponentFinance = "finance"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
	ComponentStorage = "storage"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpRead       = "read"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpList       = "list"
	OpLogin      = "login"
	OpRegister   = "register"
	OpLogout     = "logout"
	OpRestore    = "restore"
	OpInvalidate = "invalidate"
	OpPoll       = "poll"
	OpExport     = "export"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)
