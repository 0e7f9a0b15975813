package login

import (
	"encoding/binary"
	"os"
)

const (
	lastlogPath = "/var/log/lastlog"
	utmpPath    = "/var/run/utmp"
	wtmpPath    = "/var/log/wtmp"

	utLineSize = 32
	utHostSize = 256
	utNameSize = 32

	// lastlogRecordSize is sizeof(struct lastlog): ll_time (int32) +
	// ll_line[32] + ll_host[256], unpadded. Not independently verified
	// against a live glibc header; best-effort layout for a best-effort
	// feature.
	lastlogRecordSize = 4 + utLineSize + utHostSize
)

type lastlogRecord struct {
	Time int32
	Line [utLineSize]byte
	Host [utHostSize]byte
}

// RecordLastlog writes a lastlog entry for uid at its fixed offset
// (uid * sizeof(record)) in /var/log/lastlog, matching the classic
// seek-by-uid layout. A missing lastlog file is created; an open or
// write failure is returned to the caller.
func RecordLastlog(uid uint32, tty, host string, loginTime int64) error {
	f, err := os.OpenFile(lastlogPath, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	var rec lastlogRecord
	rec.Time = int32(loginTime)
	copy(rec.Line[:], tty)
	copy(rec.Host[:], host)

	buf := make([]byte, 0, lastlogRecordSize)
	w := newByteWriter(&buf)
	binary.Write(w, binary.LittleEndian, rec.Time)
	w.Write(rec.Line[:])
	w.Write(rec.Host[:])

	_, err = f.WriteAt(buf, int64(uid)*lastlogRecordSize)
	return err
}

type byteWriter struct {
	buf *[]byte
}

func newByteWriter(buf *[]byte) *byteWriter { return &byteWriter{buf: buf} }

func (w *byteWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

// utmpRecord is a best-effort rendering of glibc's struct utmp, used
// only to append login records to utmp/wtmp; field widths follow the
// common 64-bit glibc layout but are not independently byte-verified.
type utmpRecord struct {
	Type    int16
	Pad1    [2]byte // alignment padding before Pid
	Pid     int32
	Line    [utLineSize]byte
	ID      [4]byte
	User    [utNameSize]byte
	Host    [utHostSize]byte
	ExitA   int16
	ExitB   int16
	Session int32
	TVSec   int32
	TVUsec  int32
	AddrV6  [4]int32
	Unused  [20]byte
}

const utUserProcess = 7

// RecordLogin appends a USER_PROCESS record to utmp and wtmp for the
// given session. Best-effort: any failure is swallowed by the caller,
// since login accounting never blocks a session from starting.
func RecordLogin(pid int32, tty, user, host string, loginTime int64) error {
	var rec utmpRecord
	rec.Type = utUserProcess
	rec.Pid = pid
	copy(rec.Line[:], tty)
	copy(rec.User[:], user)
	copy(rec.Host[:], host)
	rec.TVSec = int32(loginTime)

	buf := make([]byte, 0, 384)
	w := newByteWriter(&buf)
	binary.Write(w, binary.LittleEndian, rec.Type)
	w.Write(rec.Pad1[:])
	binary.Write(w, binary.LittleEndian, rec.Pid)
	w.Write(rec.Line[:])
	w.Write(rec.ID[:])
	w.Write(rec.User[:])
	w.Write(rec.Host[:])
	binary.Write(w, binary.LittleEndian, rec.ExitA)
	binary.Write(w, binary.LittleEndian, rec.ExitB)
	binary.Write(w, binary.LittleEndian, rec.Session)
	binary.Write(w, binary.LittleEndian, rec.TVSec)
	binary.Write(w, binary.LittleEndian, rec.TVUsec)
	binary.Write(w, binary.LittleEndian, rec.AddrV6)
	w.Write(rec.Unused[:])

	if err := appendRecord(utmpPath, buf); err != nil {
		return err
	}
	return appendRecord(wtmpPath, buf)
}

func appendRecord(path string, buf []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0664)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(buf)
	return err
}
