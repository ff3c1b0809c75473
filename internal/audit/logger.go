package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amirk1998/secure-bank/internal/database"
	"github.com/amirk1998/secure-bank/internal/events"
)

// Recorder is what services depend on to leave an audit trail.
type Recorder interface {
	Log(event *Event) error
}

type Logger struct {
	db         database.DBTX
	logFile    *os.File
	fileMu     sync.Mutex
	asyncMode  bool
	eventQueue chan *Event
	publisher  events.Publisher
	logger     *slog.Logger
	closed     atomic.Bool
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewLogger creates a new audit logger. The audit_log table is created by
// the database migrations.
func NewLogger(db database.DBTX, logFilePath string, asyncMode bool, publisher events.Publisher, logger *slog.Logger) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	al := &Logger{
		db:        db,
		logFile:   logFile,
		asyncMode: asyncMode,
		publisher: publisher,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}

	if asyncMode {
		al.eventQueue = make(chan *Event, 1000)
		al.startAsyncLogger()
	}

	return al, nil
}

// Log logs an audit event
func (al *Logger) Log(event *Event) error {
	if al.closed.Load() {
		return fmt.Errorf("audit logger is closed")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if al.asyncMode {
		select {
		case al.eventQueue <- event:
			return nil
		default:
			return fmt.Errorf("audit log queue is full")
		}
	}

	return al.writeEvent(event)
}

// writeEvent writes event to database and file, then forwards it.
func (al *Logger) writeEvent(event *Event) error {
	query := `
        INSERT INTO audit_log (
            timestamp, level, user_id, action, resource,
            ip_address, success, error_msg, metadata
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	result, err := al.db.ExecContext(al.ctx, query,
		event.Timestamp,
		event.Level,
		event.UserID,
		event.Action,
		event.Resource,
		event.IPAddress,
		event.Success,
		event.ErrorMsg,
		event.Metadata,
	)

	if err != nil {
		// The file copy is still written.
		al.logger.Error("failed to write audit event to database", "action", event.Action, "error", err)
	} else {
		event.ID, _ = result.LastInsertId()
	}

	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	al.fileMu.Lock()
	_, err = al.logFile.Write(append(jsonData, '\n'))
	al.fileMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to write to log file: %w", err)
	}

	al.forward(event)
	return nil
}

func (al *Logger) forward(event *Event) {
	if al.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := al.publisher.Publish(ctx, &events.SecurityEvent{
		Action:     event.Action,
		Level:      string(event.Level),
		UserID:     event.UserID,
		Resource:   event.Resource,
		IPAddress:  event.IPAddress,
		Success:    event.Success,
		Message:    event.ErrorMsg,
		Metadata:   event.Metadata,
		OccurredAt: event.Timestamp,
	})
	if err != nil {
		al.logger.Warn("failed to publish security event", "action", event.Action, "error", err)
	}
}

// startAsyncLogger starts async logging worker
func (al *Logger) startAsyncLogger() {
	al.wg.Add(1)
	go func() {
		defer al.wg.Done()
		for {
			select {
			case event := <-al.eventQueue:
				if err := al.writeEvent(event); err != nil {
					al.logger.Error("failed to write audit event", "error", err)
				}
			case <-al.ctx.Done():
				al.drain()
				return
			}
		}
	}()
}

func (al *Logger) drain() {
	// The database context is already cancelled; give the tail a fresh one.
	al.ctx = context.Background()
	for {
		select {
		case event := <-al.eventQueue:
			if err := al.writeEvent(event); err != nil {
				al.logger.Error("failed to write audit event", "error", err)
			}
		default:
			return
		}
	}
}

// QueryLogs queries audit logs with filters
func (al *Logger) QueryLogs(ctx context.Context, filters QueryFilters) ([]*Event, error) {
	query := `
        SELECT id, timestamp, level, user_id, action, resource,
               COALESCE(ip_address, ''), success, COALESCE(error_msg, ''), COALESCE(metadata, '')
        FROM audit_log
        WHERE 1=1
    `

	args := []any{}

	if filters.StartTime != nil {
		query += " AND timestamp >= ?"
		args = append(args, filters.StartTime)
	}

	if filters.EndTime != nil {
		query += " AND timestamp <= ?"
		args = append(args, filters.EndTime)
	}

	if filters.UserID != nil {
		query += " AND user_id = ?"
		args = append(args, filters.UserID)
	}

	if len(filters.Actions) > 0 {
		query += " AND action IN (?" + strings.Repeat(", ?", len(filters.Actions)-1) + ")"
		for _, a := range filters.Actions {
			args = append(args, a)
		}
	}

	if filters.Level != "" {
		query += " AND level = ?"
		args = append(args, filters.Level)
	}

	query += " ORDER BY timestamp DESC LIMIT ?"
	if filters.Limit <= 0 {
		filters.Limit = 100
	}
	args = append(args, filters.Limit)

	rows, err := al.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var result []*Event
	for rows.Next() {
		event := &Event{}
		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.Level,
			&event.UserID,
			&event.Action,
			&event.Resource,
			&event.IPAddress,
			&event.Success,
			&event.ErrorMsg,
			&event.Metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		result = append(result, event)
	}

	return result, rows.Err()
}

// Close flushes queued events and closes the file.
func (al *Logger) Close() error {
	if al.closed.Swap(true) {
		return nil
	}
	al.cancel()
	al.wg.Wait()

	return al.logFile.Close()
}
