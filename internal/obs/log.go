package obs

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared structured logger used across the service and console.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// SetLoggerOutputForTests redirects the shared logger and returns a restore
// function for use with defer.
func SetLoggerOutputForTests(w io.Writer) func() {
	Logger().SetOutput(w)
	return func() { Logger().SetOutput(os.Stdout) }
}

// LogEntry emits a structured JSON log line.
func LogEntry(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"ts":"error","level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
