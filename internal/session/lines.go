package session

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// RunLines serves the session over a line protocol: every non-empty input
// line is a message, every reply is written as one JSON line. It returns when
// the input ends, the context is canceled or the session is done.
func (s *Session) RunLines(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		reply, err := s.Handle(ctx, line)
		if err != nil {
			s.logger.Debug().Err(err).Str("msg", line).Msg("handled with error")
		}
		if err := enc.Encode(reply); err != nil {
			return err
		}
		if s.Done() {
			return nil
		}
	}
	return scanner.Err()
}
