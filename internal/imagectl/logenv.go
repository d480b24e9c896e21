package imagectl

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

type logLevel int

const (
	levelDebug logLevel = iota
	levelInfo
	levelWarn
	levelError
)

// printer writes leveled, colored lines for humans. Results go to out and
// diagnostics to errOut.
type printer struct {
	out    io.Writer
	errOut io.Writer
	level  logLevel
}

func newPrinter(out, errOut io.Writer, level string) *printer {
	return &printer{out: out, errOut: errOut, level: parseLevel(level)}
}

func parseLevel(level string) logLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return levelDebug
	case "warn", "warning":
		return levelWarn
	case "error", "err":
		return levelError
	default:
		return levelInfo
	}
}

var (
	tagDebug = color.New(color.FgHiBlack).SprintFunc()
	tagInfo  = color.New(color.FgCyan).SprintFunc()
	tagWarn  = color.New(color.FgYellow).SprintFunc()
	tagError = color.New(color.FgRed, color.Bold).SprintFunc()
	okText   = color.New(color.FgGreen).SprintFunc()
	badText  = color.New(color.FgRed).SprintFunc()
	keyText  = color.New(color.Bold).SprintFunc()
)

func (p *printer) logf(tag string, min logLevel, format string, a ...any) {
	if p.level > min {
		return
	}
	fmt.Fprintf(p.errOut, "%s %s\n", tag, fmt.Sprintf(format, a...))
}

func (p *printer) debug(format string, a ...any) { p.logf(tagDebug("DEBUG"), levelDebug, format, a...) }
func (p *printer) info(format string, a ...any)  { p.logf(tagInfo("INFO"), levelInfo, format, a...) }
func (p *printer) warn(format string, a ...any)  { p.logf(tagWarn("WARN"), levelWarn, format, a...) }
func (p *printer) errl(format string, a ...any)  { p.logf(tagError("ERROR"), levelError, format, a...) }

// field prints an aligned "key: value" result line.
func (p *printer) field(key string, value any) {
	fmt.Fprintf(p.out, "%-14s %v\n", keyText(key+":"), value)
}

func (p *printer) line(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}

// Env helpers
func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}
