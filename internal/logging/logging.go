// Package logging builds the process logger and keeps credentials out of log output.
package logging

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Redaction replaces sensitive values in log output.
const Redaction = "***"

// DefaultSensitiveFields are redacted unless the caller supplies its own list.
var DefaultSensitiveFields = []string{"password", "new_password", "reset_token", "session_id"}

// New returns a text logger at the given level writing to out, with a
// RedactHook for fields installed.
func New(level string, out io.Writer, fields ...string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(fields) == 0 {
		fields = DefaultSensitiveFields
	}
	logger.AddHook(NewRedactHook(fields...))
	return logger, nil
}

// RedactHook masks sensitive structured fields and field=value pairs in messages.
type RedactHook struct {
	fields    map[string]struct{}
	names     []string
	Separator string
}

func NewRedactHook(fields ...string) *RedactHook {
	h := &RedactHook{
		fields:    make(map[string]struct{}, len(fields)),
		Separator: ";",
	}
	for _, f := range fields {
		if f == "" {
			continue
		}
		if _, dup := h.fields[f]; dup {
			continue
		}
		h.fields[f] = struct{}{}
		h.names = append(h.names, f)
	}
	return h
}

func (h *RedactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *RedactHook) Fire(entry *logrus.Entry) error {
	for k := range entry.Data {
		if _, ok := h.fields[k]; ok {
			entry.Data[k] = Redaction
		}
	}
	entry.Message = FilterDatum(h.names, Redaction, entry.Message, h.Separator)
	return nil
}

// FilterDatum replaces the value of every field=value<separator> pair in
// message whose field is listed.
func FilterDatum(fields []string, redaction, message, separator string) string {
	if separator == "" {
		return message
	}
	sep := regexp.QuoteMeta(separator)
	for _, field := range fields {
		re := regexp.MustCompile(regexp.QuoteMeta(field) + "=(.*?)" + sep)
		message = re.ReplaceAllLiteralString(message, field+"="+redaction+separator)
	}
	return message
}
