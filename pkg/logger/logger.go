// Package logger provides structured logging functionality for the Agent Arena.
// Console output is human readable; file output is JSON, one file per service
// and process start.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogsDir is the directory that receives log files.
const LogsDir = "logs"

var (
	// file logging state, guarded by logFileMutex
	logFileMutex        sync.Mutex
	sequenceCounter     = make(map[string]int)
	serviceLoggers      = make(map[ServiceType]*os.File)
	serviceMultiWriters = make(map[ServiceType]io.Writer)
)

// LogCategory tags a log line with the subsystem that emitted it.
type LogCategory string

const (
	Startup   LogCategory = "startup"
	Request   LogCategory = "request"
	Battle    LogCategory = "battle"
	Coach     LogCategory = "coach"
	Analytics LogCategory = "analytics"
	Feed      LogCategory = "feed"
	Training  LogCategory = "training"
	GRPC      LogCategory = "grpc"
	General   LogCategory = "general"
)

// ServiceType represents the binary generating the logs
type ServiceType string

const (
	Arena  ServiceType = "arena"
	Seeder ServiceType = "seed"
)

// ParseLevel maps a configured level name to a zerolog level.
// Unknown names fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func consoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
}

// Init configures the global logger for console output only.
func Init(level string) {
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = log.Output(consoleWriter())
}

// InitWithFileLogging configures the global logger to write to the console
// and to a JSON file for service under LogsDir.
func InitWithFileLogging(level string, service ServiceType) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	logFileMutex.Lock()
	defer logFileMutex.Unlock()

	writer, err := serviceWriter(service)
	if err != nil {
		fmt.Printf("Failed to set up file logging: %v\n", err)
		log.Logger = log.Output(consoleWriter())
		return
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
}

// serviceWriter returns the console+file writer for a service, opening the
// log file on first use. Callers must hold logFileMutex.
func serviceWriter(service ServiceType) (io.Writer, error) {
	if writer, exists := serviceMultiWriters[service]; exists {
		return writer, nil
	}

	if err := os.MkdirAll(LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	logFilePath := filepath.Join(LogsDir, generateLogFileName(service))
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}
	serviceLoggers[service] = logFile

	// Console gets pretty format, file gets JSON
	writer := zerolog.MultiLevelWriter(consoleWriter(), logFile)
	serviceMultiWriters[service] = writer

	fmt.Printf("Logging for service %s to file: %s\n", service, logFilePath)
	return writer, nil
}

// generateLogFileName returns YYYYMMDD_HHMMSS_{service}_{seq}.log.
// Callers hold logFileMutex.
func generateLogFileName(service ServiceType) string {
	now := time.Now()
	dateStr := now.Format("20060102")
	timeStr := now.Format("150405")

	key := fmt.Sprintf("%s_%s_%s", dateStr, timeStr, service)
	sequenceCounter[key]++

	return fmt.Sprintf("%s_%s_%s_%03d.log", dateStr, timeStr, service, sequenceCounter[key])
}

// NewCategoryLogger creates a logger tagged with service and category fields.
// When file logging is enabled all categories of a service share one file;
// otherwise the logger writes to the console only.
func NewCategoryLogger(level string, service ServiceType, category LogCategory, toFile bool) zerolog.Logger {
	var writer io.Writer = consoleWriter()

	if toFile {
		logFileMutex.Lock()
		w, err := serviceWriter(service)
		logFileMutex.Unlock()
		if err != nil {
			fmt.Printf("Failed to set up file logging: %v\n", err)
		} else {
			writer = w
		}
	}

	return zerolog.New(writer).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", string(service)).
		Str("category", string(category)).
		Logger()
}

// Close flushes and closes every open service log file.
func Close() {
	logFileMutex.Lock()
	defer logFileMutex.Unlock()

	for service, f := range serviceLoggers {
		_ = f.Sync()
		_ = f.Close()
		delete(serviceLoggers, service)
		delete(serviceMultiWriters, service)
	}
}

// WithRequestID creates a logger with a request ID field.
func WithRequestID(requestID string) zerolog.Logger {
	return log.With().Str("request_id", requestID).Logger()
}

// ForAgent tags lg with an agent ID.
func ForAgent(lg zerolog.Logger, agentID string) *zerolog.Logger {
	l := lg.With().Str("agent_id", agentID).Logger()
	return &l
}

// ForBattle tags lg with the battle and its agent.
func ForBattle(lg zerolog.Logger, battleID, agentID string) *zerolog.Logger {
	l := lg.With().Str("battle_id", battleID).Str("agent_id", agentID).Logger()
	return &l
}

// ForCaller tags lg with the authenticated key ID.
func ForCaller(lg zerolog.Logger, keyID string) *zerolog.Logger {
	l := lg.With().Str("key_id", keyID).Logger()
	return &l
}

// CleanupOldLogs deletes .log files under LogsDir last modified more than
// daysToKeep days ago.
func CleanupOldLogs(daysToKeep int) error {
	if _, err := os.Stat(LogsDir); os.IsNotExist(err) {
		return nil
	}

	cutoff := time.Duration(daysToKeep) * 24 * time.Hour

	return filepath.Walk(LogsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || !strings.HasSuffix(info.Name(), ".log") {
			return nil
		}

		if time.Since(info.ModTime()) > cutoff {
			return os.Remove(path)
		}

		return nil
	})
}

// GetLogStats counts log files per service in the logs directory.
func GetLogStats() (map[string]int, error) {
	stats := make(map[string]int)

	if _, err := os.Stat(LogsDir); os.IsNotExist(err) {
		return stats, nil
	}

	err := filepath.Walk(LogsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || !strings.HasSuffix(info.Name(), ".log") {
			return nil
		}

		// YYYYMMDD_HHMMSS_{service}_{sequence}.log
		parts := strings.Split(strings.TrimSuffix(info.Name(), ".log"), "_")
		if len(parts) == 4 {
			stats[parts[2]]++
		}

		return nil
	})

	return stats, err
}
