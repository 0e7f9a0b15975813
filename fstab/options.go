// Package fstab parses the fstab-style mount description the mount
// engine consumes: one line per mount, fields separated by whitespace,
// with the shorthand expansion and option table described below.
package fstab

import (
	"strings"

	"golang.org/x/sys/unix"
)

// flagOption is one row of the mount option table: the kernel mount flag
// bit a token controls, and whether the token clears it (true) or sets it
// (false).
type flagOption struct {
	flag  uintptr
	clear bool
}

// optionTable is the mount(8)-style option vocabulary. "rbind" sets both
// MS_BIND and MS_REC; the r-prefixed propagation entries ("rprivate",
// "rshared", "rslave", "runbindable") likewise add MS_REC to their bit.
var optionTable = map[string]flagOption{
	"ro":          {unix.MS_RDONLY, false},
	"rw":          {unix.MS_RDONLY, true},
	"suid":        {unix.MS_NOSUID, true},
	"nosuid":      {unix.MS_NOSUID, false},
	"dev":         {unix.MS_NODEV, true},
	"nodev":       {unix.MS_NODEV, false},
	"exec":        {unix.MS_NOEXEC, true},
	"noexec":      {unix.MS_NOEXEC, false},
	"sync":        {unix.MS_SYNCHRONOUS, false},
	"async":       {unix.MS_SYNCHRONOUS, true},
	"dirsync":     {unix.MS_DIRSYNC, false},
	"remount":     {unix.MS_REMOUNT, false},
	"mand":        {unix.MS_MANDLOCK, false},
	"nomand":      {unix.MS_MANDLOCK, true},
	"atime":       {unix.MS_NOATIME, true},
	"noatime":     {unix.MS_NOATIME, false},
	"diratime":    {unix.MS_NODIRATIME, true},
	"nodiratime":  {unix.MS_NODIRATIME, false},
	"relatime":    {unix.MS_RELATIME, false},
	"norelatime":  {unix.MS_RELATIME, true},
	"strictatime": {unix.MS_STRICTATIME, false},
	"bind":        {unix.MS_BIND, false},
	"rbind":       {unix.MS_BIND | unix.MS_REC, false},
	"private":     {unix.MS_PRIVATE, false},
	"rprivate":    {unix.MS_PRIVATE | unix.MS_REC, false},
	"shared":      {unix.MS_SHARED, false},
	"rshared":     {unix.MS_SHARED | unix.MS_REC, false},
	"slave":       {unix.MS_SLAVE, false},
	"rslave":      {unix.MS_SLAVE | unix.MS_REC, false},
	"unbindable":  {unix.MS_UNBINDABLE, false},
	"runbindable": {unix.MS_UNBINDABLE | unix.MS_REC, false},
}

// PropagationMask is every bit that §4.4 step 6 applies in a second,
// separate mount(NULL, target, ...) call instead of the initial mount.
const PropagationMask uintptr = unix.MS_SHARED | unix.MS_SLAVE | unix.MS_PRIVATE | unix.MS_UNBINDABLE

// canonicalSetNames lists, in a fixed order, the one "set" token this
// package emits for each bit group when serializing flags back to a
// string. Only set-type entries are listed: a cleared bit round-trips as
// the absence of its set name, since ParseOptions starts from flags==0.
var canonicalSetNames = []string{
	"ro", "nosuid", "nodev", "noexec", "sync", "dirsync", "remount",
	"mand", "noatime", "nodiratime", "relatime", "strictatime",
	"rbind", "bind",
	"rprivate", "private", "rshared", "shared", "rslave", "slave",
	"runbindable", "unbindable",
}

// failurePolicy are the non-kernel, non-x- tokens controlling how a
// mount's own failure is reported by the engine, per §4.4's "Failure
// policy per entry".
type failurePolicy struct {
	NoFail bool
	Silent bool
	Loud   bool
}

// Options is the result of parsing a comma-separated mount options
// string: kernel mount flags, leftover filesystem-specific data, the x-
// extension directives, and the failure policy.
type Options struct {
	Flags uintptr
	Data  string

	XCreate string // "", "file", "dir", or "auto"
	XDetach bool

	failurePolicy
}

// looksLikeOptions reports whether every comma-separated token in s is
// something ParseOptions recognizes (a table entry, an x- directive, or a
// failure-policy keyword). The shorthand expander uses this to
// disambiguate a 2- or 3-field fstab line between its "options" and
// "path" readings.
func looksLikeOptions(s string) bool {
	if s == "" {
		return false
	}
	for _, tok := range strings.Split(s, ",") {
		if tok == "" {
			continue
		}
		if _, ok := optionTable[tok]; ok {
			continue
		}
		if strings.HasPrefix(tok, "x-") {
			continue
		}
		switch tok {
		case "nofail", "silent", "loud":
			continue
		}
		return false
	}
	return true
}

// ParseOptions splits a comma-separated mount options string into kernel
// flags, extension directives, failure policy, and leftover data, per
// §4.4: "unrecognized options accumulate into data".
func ParseOptions(s string) Options {
	var o Options
	var data []string

	for _, tok := range strings.Split(s, ",") {
		if tok == "" {
			continue
		}

		switch {
		case tok == "nofail":
			o.NoFail = true
			continue
		case tok == "silent":
			o.Silent = true
			continue
		case tok == "loud":
			o.Loud = true
			continue
		case strings.HasPrefix(tok, "x-create="):
			o.XCreate = strings.TrimPrefix(tok, "x-create=")
			continue
		case tok == "x-move":
			o.Flags |= unix.MS_MOVE
			continue
		case tok == "x-detach":
			o.XDetach = true
			continue
		}

		if fo, ok := optionTable[tok]; ok {
			if fo.clear {
				o.Flags &^= fo.flag
			} else {
				o.Flags |= fo.flag
			}
			continue
		}

		data = append(data, tok)
	}

	o.Data = strings.Join(data, ",")
	return o
}

// Serialize reconstructs an options string from flags and data such that
// ParseOptions(Serialize(flags, data)).Flags == flags and .Data == data.
// Known options are emitted first (in a fixed, deterministic order), then
// the raw data tokens. MS_MOVE has no name in canonicalSetNames and is not
// emitted; Entry.String writes it back as "x-move" itself.
func Serialize(flags uintptr, data string) string {
	var tokens []string

	// canonicalSetNames lists "rbind" before "bind", "rprivate" before
	// "private" and so on, so the wider (rec-) bit is claimed first and a
	// rec-bind mount doesn't lose MS_REC on round-trip.
	remaining := flags
	seen := map[string]bool{}

	for _, name := range canonicalSetNames {
		if seen[name] {
			continue
		}
		fo, ok := optionTable[name]
		if !ok || fo.clear {
			continue
		}
		if remaining&fo.flag == fo.flag && fo.flag != 0 {
			tokens = append(tokens, name)
			remaining &^= fo.flag
			seen[name] = true
		}
	}

	if data != "" {
		tokens = append(tokens, strings.Split(data, ",")...)
	}

	return strings.Join(tokens, ",")
}
