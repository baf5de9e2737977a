package at

import (
	"strconv"
	"strings"
)

// ClockUnavailable is what ParseClock yields when no usable timestamp is
// present in a response.
const ClockUnavailable = "TS_ERR"

// ParseNewMessageIndex extracts the storage index from a +CMTI line, for
// example `+CMTI: "SM",3`. Only positive indices are valid.
func ParseNewMessageIndex(line string) (int, bool) {
	if !strings.HasPrefix(line, UrcNewMsg) {
		return 0, false
	}
	_, rest, found := strings.Cut(line, ",")
	if !found {
		return 0, false
	}
	index, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || index <= 0 {
		return 0, false
	}
	return index, true
}

// ParseClock finds a +CCLK response in resp and renders it as
// "2006-01-02 15:04:05". The modem reports `+CCLK: "yy/MM/dd,hh:mm:ss+zz"`;
// the zone suffix is dropped.
func ParseClock(resp string) (string, bool) {
	start := strings.Index(resp, RespClock)
	if start < 0 {
		return ClockUnavailable, false
	}
	value := resp[start+len(RespClock):]
	end := strings.IndexByte(value, '"')
	if end < 0 {
		return ClockUnavailable, false
	}
	value = value[:end]
	if len(value) < 17 {
		return ClockUnavailable, false
	}

	var b strings.Builder
	b.Grow(19)
	b.WriteString("20")
	b.WriteString(value[0:2])
	b.WriteByte('-')
	b.WriteString(value[3:5])
	b.WriteByte('-')
	b.WriteString(value[6:8])
	b.WriteByte(' ')
	b.WriteString(value[9:11])
	b.WriteByte(':')
	b.WriteString(value[12:14])
	b.WriteByte(':')
	b.WriteString(value[15:17])
	return b.String(), true
}

// Registered reports whether a +CREG? response shows the modem attached
// to its home network or roaming.
func Registered(resp string) bool {
	return strings.Contains(resp, RespRegHome) || strings.Contains(resp, RespRegRoaming)
}

// Acknowledged reports whether resp carries the OK final result.
func Acknowledged(resp string) bool {
	return strings.Contains(resp, OK)
}

// MessageBody extracts the text of a message from an AT+CMGR response.
// The body is the lines between the +CMGR: header and the first final
// result. Anything before the header and any unsolicited result code
// interleaved with the reply is skipped. Without a header the body is empty.
func MessageBody(resp string) string {
	data := []byte(resp)
	var lines []string
	inBody := false
	for len(data) > 0 {
		advance, token, _ := Splitter(data, true)
		if advance == 0 {
			break
		}
		data = data[advance:]

		line := string(token)
		trimmed := strings.TrimSpace(line)
		if !inBody {
			inBody = strings.HasPrefix(trimmed, RespReadMessage)
			continue
		}
		switch Classify(trimmed) {
		case TypeFinal:
			return strings.TrimSpace(strings.Join(lines, CRLF))
		case TypeURC:
			continue
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, CRLF))
}
