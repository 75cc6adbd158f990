package config

import (
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// W3bFormatter renders compact single-line log output with stable field order.
type W3bFormatter struct{}

func (f *W3bFormatter) Format(entry *log.Entry) ([]byte, error) {
	const (
		red    = 31
		yellow = 33
		blue   = 36
		gray   = 37
		cyan   = 96
	)
	levelColor := blue
	switch entry.Level {
	case log.TraceLevel, log.DebugLevel:
		levelColor = gray
	case log.WarnLevel:
		levelColor = yellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		levelColor = red
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\x1b[%dm%s\x1b[0m %s",
		levelColor,
		strings.ToUpper(entry.Level.String())[:4],
		entry.Time.Format("2006-01-02 15:04:05.000"),
	)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " \x1b[%dm%s\x1b[0m=%v", cyan, k, entry.Data[k])
	}

	fmt.Fprintf(&b, " %q", entry.Message)
	out := strings.ReplaceAll(b.String(), "\r", "\\r")
	out = strings.ReplaceAll(out, "\n", "\\n") + "\n"
	return []byte(out), nil
}
