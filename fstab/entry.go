package fstab

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

const unixMSMove = uintptr(unix.MS_MOVE)

// Entry is one fully-expanded fstab line: every shorthand has already been
// resolved to the canonical six-field form (source, target, fstype,
// options, freq, pass) before an Entry is built.
type Entry struct {
	Source string
	Target string
	Fstype string

	Options

	Freq int
	Pass int

	// Line is the 1-based line number this entry came from, for error
	// messages; 0 for an entry built by hand rather than by Parse.
	Line int
}

// ParseError reports a malformed fstab line, naming the line number so the
// caller can point the user at it directly.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("fstab:%d: %s", e.Line, e.Msg)
}

// expand applies the line-shape shorthand table to a raw field list and
// returns the canonical six fields: source, target, fstype, options, freq,
// pass (the last two as strings, still unparsed).
//
// The three- and four-plus field boundary is genuinely ambiguous in the
// abstract ("SRC DST OPTS" and "FS DST TYPE" are both three fields); this
// resolves it the way looksLikeOptions already resolves the two-field
// case: the third field is taken as OPTS when every comma-separated token
// in it is something ParseOptions recognizes, and as a literal fstype
// otherwise.
func expand(fields []string) (src, dst, fstype, opts string, err error) {
	switch len(fields) {
	case 0:
		return "", "", "", "", fmt.Errorf("empty entry")

	case 1:
		// SRC alone -> SRC SRC none rbind,x-create=auto
		return fields[0], fields[0], "none", "rbind,x-create=auto", nil

	case 2:
		if fields[0] == "tmpfs" {
			// tmpfs DST -> tmpfs DST tmpfs ""
			return "tmpfs", fields[1], "tmpfs", "", nil
		}
		if looksLikeOptions(fields[1]) {
			// SRC OPTS -> SRC SRC none OPTS
			return fields[0], fields[0], "none", fields[1], nil
		}
		// SRC DST -> SRC DST none rbind,x-create=auto
		return fields[0], fields[1], "none", "rbind,x-create=auto", nil

	case 3:
		if looksLikeOptions(fields[2]) {
			// SRC DST OPTS -> SRC DST none OPTS
			return fields[0], fields[1], "none", fields[2], nil
		}
		// FS DST TYPE, passthrough
		return fields[0], fields[1], fields[2], "", nil

	default:
		// Already canonical: source target fstype [options [freq [pass]]].
		opts := ""
		if len(fields) >= 4 {
			opts = fields[3]
		}
		return fields[0], fields[1], fields[2], opts, nil
	}
}

// parseLine turns one already-tokenized fstab line into an Entry,
// expanding its shorthand shape through expand first. freq and pass are
// read from fields[4] and fields[5] when present, 0 otherwise.
func parseLine(fields []string, lineNo int) (Entry, error) {
	src, dst, fstype, optStr, err := expand(fields)
	if err != nil {
		return Entry{}, &ParseError{Line: lineNo, Msg: err.Error()}
	}
	if src == "" || dst == "" || fstype == "" {
		return Entry{}, &ParseError{Line: lineNo, Msg: "source, target and fstype must not be empty"}
	}

	freq, pass := 0, 0
	if len(fields) >= 5 && fields[4] != "" {
		freq, err = strconv.Atoi(fields[4])
		if err != nil {
			return Entry{}, &ParseError{Line: lineNo, Msg: "freq: " + err.Error()}
		}
	}
	if len(fields) >= 6 && fields[5] != "" {
		pass, err = strconv.Atoi(fields[5])
		if err != nil {
			return Entry{}, &ParseError{Line: lineNo, Msg: "pass: " + err.Error()}
		}
	}
	// "A line's pass defaults to its dump-freq field if pass is 0."
	if pass == 0 {
		pass = freq
	}

	return Entry{
		Source:  src,
		Target:  dst,
		Fstype:  fstype,
		Options: ParseOptions(optStr),
		Freq:    freq,
		Pass:    pass,
		Line:    lineNo,
	}, nil
}

// String renders e back to a single canonical fstab line.
func (e Entry) String() string {
	flags := e.Flags
	var extra []string
	if flags&unixMSMove == unixMSMove {
		extra = append(extra, "x-move")
		flags &^= unixMSMove
	}
	opts := Serialize(flags, e.Data)
	switch e.XCreate {
	case "":
	default:
		extra = append(extra, "x-create="+e.XCreate)
	}
	if e.XDetach {
		extra = append(extra, "x-detach")
	}
	if e.NoFail {
		extra = append(extra, "nofail")
	}
	if e.Silent {
		extra = append(extra, "silent")
	}
	if e.Loud {
		extra = append(extra, "loud")
	}
	if len(extra) > 0 {
		if opts != "" {
			opts += ","
		}
		opts += strings.Join(extra, ",")
	}
	if opts == "" {
		opts = "defaults"
	}
	return fmt.Sprintf("%s %s %s %s %d %d", e.Source, e.Target, e.Fstype, opts, e.Freq, e.Pass)
}
