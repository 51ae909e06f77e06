/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package nlog

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/juju/lumberjack/v2"
)

// Logger is something that can print, using Logf, a format string
type Logger interface {
	Logf(format string, v ...any)
}

// Discard is a Logger that drops everything
var Discard Logger = discardLogger{}

type discardLogger struct{}

func (discardLogger) Logf(string, ...any) {}

// subsystemLogger is a logger that handles only one file out of all that are opened by its logger
type subsystemLogger struct {
	subsystem string
	logger    *ServerLogger
}

// Logf for a subsystem logger is just a wrap for the Logs of its internal logger, giving its only subsystem
func (s *subsystemLogger) Logf(format string, v ...any) {
	s.logger.Logf(s.subsystem, format, v...)
}

// subsystemWriter forwards raw lines (already formatted by someone else, e.g. an access log) to a subsystem file
type subsystemWriter struct {
	subsystem string
	logger    *ServerLogger
}

func (s *subsystemWriter) Write(p []byte) (int, error) {
	s.logger.enqueue(logEntry{s.subsystem, string(p), true})
	return len(p), nil
}

// logEntry is an helper struct that can be used to send a couple (subsystem, formatted string) onto the log channel
type logEntry struct {
	subsystem string
	formatted string
	raw       bool // Written as is, without the subsystem prefix
}

// LogConfig describes where and how the subsystem files are written
type LogConfig struct {
	Folder     string // Directory holding one <subsystem>.log file per subsystem
	Enabled    bool   // Initial state, see EnableLogging and DisableLogging
	Stderr     bool   // Mirror every line on stderr
	MaxSizeMB  int    // Size at which a file is rotated
	MaxBackups int    // Rotated files kept per subsystem
	Compress   bool   // Gzip rotated files
}

// ServerLogger writes to multiple rotating log files, one per subsystem, from one single struct.
// It's safe to share amongst goroutines since it has an internal lock
type ServerLogger struct {
	cfg LogConfig

	fileMapper map[string]*lumberjack.Logger // Maps a subsystem to its rotating file (used to write raw lines and to close it later)
	outMapper  map[string]io.Writer          // Maps a subsystem to the writer its lines go to
	logMapper  map[string]*log.Logger        // Maps a subsystem to the corresponding logger

	lock           sync.RWMutex
	currentLogFunc func(*log.Logger, string, ...any) // Current logging function (alternating between defaultLogf and nilLogf)
	enabled        bool                              // Mirrors currentLogFunc, for raw writes

	inbox chan logEntry // Log channel, formatted strings are sent here instead of directly writing to files
}

// NewServerLogger creates the log folder and returns a ServerLogger writing into it.
// When successful, error is nil
func NewServerLogger(cfg LogConfig) (*ServerLogger, error) {
	if cfg.Folder == "" {
		cfg.Folder = "logs"
	}
	if err := os.MkdirAll(cfg.Folder, 0755); err != nil {
		return nil, err
	}
	n := &ServerLogger{
		cfg:            cfg,
		fileMapper:     make(map[string]*lumberjack.Logger),
		outMapper:      make(map[string]io.Writer),
		logMapper:      make(map[string]*log.Logger),
		currentLogFunc: nilLogf,
		inbox:          make(chan logEntry, 600),
	}

	if cfg.Enabled {
		n.currentLogFunc = defaultLogf
		n.enabled = true
	}

	return n, nil
}

// RegisterSubsystem registers a new subsystem, returning a Logger that writes to <folder>/<subsystem>.log.
// Registering the same subsystem twice returns a logger on the already opened file.
// If successful, error is nil
func (n *ServerLogger) RegisterSubsystem(subsystem string) (Logger, error) {
	if subsystem == "" {
		return nil, fmt.Errorf("A subsystem needs a name")
	}

	n.lock.Lock()
	defer n.lock.Unlock()

	if _, ok := n.logMapper[subsystem]; ok {
		return &subsystemLogger{subsystem, n}, nil
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(n.cfg.Folder, subsystem+".log"),
		MaxSize:    n.cfg.MaxSizeMB,
		MaxBackups: n.cfg.MaxBackups,
		Compress:   n.cfg.Compress,
	}
	var out io.Writer = file
	if n.cfg.Stderr {
		out = io.MultiWriter(file, os.Stderr)
	}

	n.fileMapper[subsystem] = file
	n.outMapper[subsystem] = out
	n.logMapper[subsystem] = log.New(out, fmt.Sprintf("[%s]: ", subsystem), log.Ldate|log.Ltime|log.Lmicroseconds)
	return &subsystemLogger{subsystem, n}, nil
}

// GetSubsystemLogger retrieves a subsystem logger, if previously registerd.
// If successful, error is nil
func (n *ServerLogger) GetSubsystemLogger(subsystem string) (Logger, error) {
	n.lock.RLock()
	defer n.lock.RUnlock()

	if _, ok := n.logMapper[subsystem]; !ok {
		return nil, fmt.Errorf("The subsystem was not registered")
	}
	return &subsystemLogger{subsystem, n}, nil
}

// Writer returns an io.Writer whose lines end up, unprefixed, in the file of a registered subsystem
func (n *ServerLogger) Writer(subsystem string) (io.Writer, error) {
	n.lock.RLock()
	defer n.lock.RUnlock()

	if _, ok := n.outMapper[subsystem]; !ok {
		return nil, fmt.Errorf("The subsystem was not registered")
	}
	return &subsystemWriter{subsystem, n}, nil
}

// EnableLogging enables the logging done by this logger
func (n *ServerLogger) EnableLogging() {
	n.lock.Lock()
	n.currentLogFunc = defaultLogf
	n.enabled = true
	n.lock.Unlock()
}

// DisableLogging disables the logging done by this logger
func (n *ServerLogger) DisableLogging() {
	n.lock.Lock()
	n.currentLogFunc = nilLogf
	n.enabled = false
	n.lock.Unlock()
}

// Logf formats a string using format and v, and appends it to a logging channel, alongside the subsystem it will be written to
func (n *ServerLogger) Logf(subsystem, format string, v ...any) {
	n.enqueue(logEntry{subsystem, fmt.Sprintf(format, v...), false})
}

// enqueue hands e to Run. When the inbox is full the entry is written by the caller instead
func (n *ServerLogger) enqueue(e logEntry) {
	select {
	case n.inbox <- e:
	default:
		n.actualWrite(e)
	}
}

// Run waits either on the log channel or ctx.Done()
// When ctx.Done(), what is still queued gets written and the files are closed
// When a message arrives on the log channel, we write it accordingly
func (n *ServerLogger) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			n.drain()
			n.CloseAll()
			return
		case msg := <-n.inbox:
			n.actualWrite(msg)
		}
	}
}

// drain writes every queued entry without waiting for new ones
func (n *ServerLogger) drain() {
	for {
		select {
		case msg := <-n.inbox:
			n.actualWrite(msg)
		default:
			return
		}
	}
}

// actualWrite is the function that writes the entry in its subsystem file
// When successful, error is nil
func (n *ServerLogger) actualWrite(e logEntry) error {
	n.lock.RLock()
	logFunc, enabled := n.currentLogFunc, n.enabled
	logger, ok := n.logMapper[e.subsystem]
	out := n.outMapper[e.subsystem]
	n.lock.RUnlock()

	if !ok {
		return fmt.Errorf("Logger is not setup for this subsystem")
	}
	if e.raw {
		if enabled {
			_, err := io.WriteString(out, e.formatted)
			return err
		}
		return nil
	}
	if logFunc != nil {
		logFunc(logger, "%s", e.formatted)
	}
	return nil
}

// CloseAll closes all the open files that the loggers are using
func (n *ServerLogger) CloseAll() {
	n.lock.Lock()
	defer n.lock.Unlock()

	for _, file := range n.fileMapper {
		file.Close()
	}
	clear(n.fileMapper)
	clear(n.outMapper)
	clear(n.logMapper)
}

// defaultLogf is a log function that writes to a logger l
func defaultLogf(l *log.Logger, format string, a ...any) {
	l.Printf(format, a...)
}

// nilLogf is a log function that does nothing, which gets called when logging is disabled
func nilLogf(*log.Logger, string, ...any) {}
