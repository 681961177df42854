package quizapi

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// ReadEvents parses a text/event-stream body and calls onData with every
// "data:" payload. The feedback endpoint sends one chunk per line, so lines are
// delivered individually rather than joined per event. It returns nil on EOF
// or once the [DONE] sentinel arrives.
func ReadEvents(r io.Reader, onData func(data string) error) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		eof := err != nil

		if data, ok := dataPayload(line); ok {
			if strings.TrimSpace(data) == streamDoneToken {
				return nil
			}
			if herr := onData(data); herr != nil {
				return herr
			}
		}

		if eof {
			return nil
		}
	}
}

func dataPayload(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "data:") {
		return "", false
	}
	data := strings.TrimPrefix(line, "data:")
	return strings.TrimPrefix(data, " "), true
}
