package openrouter

import (
	"bufio"
	"bytes"
	"io"
)

var dataPrefix = []byte("data:")

// sseScanner reads the data payloads of a server-sent-events body. Lines
// without a data prefix (comments, event names, blank keep-alives) are
// skipped.
type sseScanner struct {
	s *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	s := bufio.NewScanner(r)
	// Model catalogs and long reasoning deltas can exceed the default token
	// size; allow frames up to 1 MiB.
	s.Buffer(make([]byte, 0, 64*1024), 1<<20)
	return &sseScanner{s: s}
}

// Next returns the next non-empty data payload, io.EOF when the body is
// exhausted, or the underlying read error. The returned slice is only valid
// until the following call.
func (sc *sseScanner) Next() ([]byte, error) {
	for sc.s.Scan() {
		line := bytes.TrimRight(sc.s.Bytes(), "\r")
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := bytes.TrimPrefix(line, dataPrefix)
		if len(payload) > 0 && payload[0] == ' ' {
			payload = payload[1:]
		}
		if len(payload) == 0 {
			continue
		}
		return payload, nil
	}
	if err := sc.s.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}
