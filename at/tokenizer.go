package at

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter is used for tokenizing AT command modem responses. It uses
// the signature of bufio.SplitFunc so it can be directly used with
// bufio.Scanner, and it is also called directly on partial buffers by the
// modem link, which feeds it whatever bytes arrived during a tick.
//
// Lines end in LF; a CR right before the LF is dropped. The SMS input
// prompt ("> ") is returned as its own token since the modem never
// terminates it.
//
// When atEOF is false and no terminator is present, Splitter asks for more
// data, so a line split across two reads is reassembled.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if bytes.HasPrefix(data, []byte(Prompt)) {
		return len(Prompt), data[0:len(Prompt)], nil
	}

	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, bytes.TrimSuffix(data[0:i], []byte("\r")), nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// Classify identifies the nature of the modem output
func Classify(line string) ResponseType {
	if line == Prompt {
		return TypePrompt
	}

	switch line {
	case OK, ERROR:
		return TypeFinal
	}

	switch {
	case strings.HasPrefix(line, CmeError), strings.HasPrefix(line, CmsError):
		return TypeFinal
	case strings.HasPrefix(line, UrcNewMsg), line == UrcCall:
		return TypeURC
	default:
		return TypeData
	}
}
