package core

// Logger is the app-wide leveled logger.
// args may hold errors, extra data (map[string]interface{}) and the authenticated user.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
