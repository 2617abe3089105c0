package services

import (
	"bufio"
	"io"
	"strings"
)

// streamSSE reads a text/event-stream body and hands each event's joined
// data payload to onData. Gemini's streaming endpoint only sends data
// frames, so event names are not surfaced.
func streamSSE(r io.Reader, onData func(data string) error) error {
	sc := bufio.NewScanner(r)
	// Generation chunks can carry whole paragraphs on one data line.
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data []string
	deliver := func() error {
		if len(data) == 0 || onData == nil {
			data = data[:0]
			return nil
		}
		payload := strings.Join(data, "\n")
		data = data[:0]
		return onData(payload)
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case line == "":
			// Blank line ends the event.
			if err := deliver(); err != nil {
				return err
			}
		case strings.HasPrefix(line, ":"):
			// Keepalive comment.
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return deliver()
}
