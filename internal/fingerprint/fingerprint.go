package fingerprint

import (
	"encoding/binary"
	"encoding/hex"
	"os"
	"os/user"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
	"golang.org/x/term"
)

const (
	// FallbackPassphrase is used when no environment signal is available.
	FallbackPassphrase = "sealstore-headless-fallback-v1"

	foldRounds = 4
)

// localtimePath is the zoneinfo link consulted when TZ is unset.
var localtimePath = "/etc/localtime"

// Environment is the set of host signals the passphrase is built from.
type Environment struct {
	UserAgent string
	Locale    string
	Columns   int
	Rows      int
	Timezone  string
	Host      string
	CPUs      int
}

// Empty reports whether no identifying signal is present. CPU count and
// timezone alone are considered too weak to count.
func (e Environment) Empty() bool {
	return e.UserAgent == "" && e.Locale == "" && e.Host == "" && e.Columns == 0 && e.Rows == 0
}

func (e Environment) String() string {
	return strings.Join([]string{
		e.UserAgent,
		e.Locale,
		strconv.Itoa(e.Columns) + "x" + strconv.Itoa(e.Rows),
		e.Timezone,
		e.Host,
		strconv.Itoa(e.CPUs),
	}, "|")
}

// ProbeOptions controls which signals Probe collects.
type ProbeOptions struct {
	// Geometry includes the terminal size when stdout is a terminal.
	Geometry bool
}

// Probe collects the signals of the current process environment.
func Probe(opts ProbeOptions) Environment {
	env := Environment{
		Locale:   locale(),
		Timezone: timezone(),
		CPUs:     runtime.NumCPU(),
	}

	if u, err := user.Current(); err == nil && u.Username != "" {
		env.UserAgent = "sealstore/" + runtime.GOOS + "/" + runtime.GOARCH + " (" + u.Username + ")"
	}

	if host, err := os.Hostname(); err == nil {
		env.Host = host
	}

	if opts.Geometry {
		fd := int(os.Stdout.Fd())
		if term.IsTerminal(fd) {
			if cols, rows, err := term.GetSize(fd); err == nil {
				env.Columns, env.Rows = cols, rows
			}
		}
	}

	return env
}

// timezone names the local zone. time.Local only carries a real name when
// TZ is set, so the zoneinfo link is read next. The abbreviation and offset
// are the last resort; they change with DST.
func timezone() string {
	if tz, ok := os.LookupEnv("TZ"); ok && tz != "" {
		return strings.TrimPrefix(tz, ":")
	}
	if target, err := os.Readlink(localtimePath); err == nil {
		if _, zone, found := strings.Cut(target, "zoneinfo/"); found {
			return zone
		}
		return target
	}
	name, offset := time.Now().Zone()
	return name + strconv.Itoa(offset)
}

func locale() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Passphrase folds env into a hex string. It is deterministic for a given
// environment and returns FallbackPassphrase for an empty one.
func Passphrase(env Environment) string {
	if env.Empty() {
		return FallbackPassphrase
	}

	raw := []byte(env.String())
	state := raw
	var out strings.Builder
	round := make([]byte, 4)

	for i := 0; i < foldRounds; i++ {
		binary.BigEndian.PutUint32(round, uint32(i))

		h := murmur3.New128()
		h.Write(round)
		h.Write(state)
		h.Write(raw)
		h1, h2 := h.Sum128()

		digest := make([]byte, 16)
		binary.BigEndian.PutUint64(digest[:8], h1)
		binary.BigEndian.PutUint64(digest[8:], h2)
		out.WriteString(hex.EncodeToString(digest))
		state = digest
	}

	return out.String()
}

// Deriver recomputes the passphrase from its source on every call.
type Deriver struct {
	source func() Environment
}

// NewDeriver returns a Deriver that probes the live environment.
func NewDeriver(opts ProbeOptions) *Deriver {
	return &Deriver{source: func() Environment { return Probe(opts) }}
}

// NewStaticDeriver returns a Deriver over a fixed environment.
func NewStaticDeriver(env Environment) *Deriver {
	return &Deriver{source: func() Environment { return env }}
}

// Passphrase returns the passphrase for the current environment.
func (d *Deriver) Passphrase() string {
	return Passphrase(d.source())
}
