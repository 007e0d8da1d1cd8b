package staging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

const maxLineBytes = 16 << 20

// LoadResult counts what a Load call did with its input.
type LoadResult struct {
	Lines   int `json:"lines"`
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// Loader appends NDJSON documents to a staging table.
type Loader struct {
	appender  Appender
	batchSize int
	logger    zerolog.Logger
}

func NewLoader(a Appender, batchSize int, logger zerolog.Logger) *Loader {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Loader{appender: a, batchSize: batchSize, logger: logger}
}

// Load reads one JSON object per line. Blank lines are ignored; lines that
// are not a JSON object are logged and skipped. Documents are not validated
// beyond that.
func (l *Loader) Load(ctx context.Context, r io.Reader) (LoadResult, error) {
	var res LoadResult
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	pending := make([][]byte, 0, l.batchSize)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		n, err := l.appender.Append(ctx, pending)
		if err != nil {
			return err
		}
		res.Loaded += int(n)
		pending = pending[:0]
		return nil
	}

	for sc.Scan() {
		res.Lines++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] != '{' || !json.Valid(line) {
			res.Skipped++
			l.logger.Warn().Int("line", res.Lines).Msg("skipping malformed NDJSON line")
			continue
		}
		pending = append(pending, bytes.Clone(line))
		if len(pending) >= l.batchSize {
			if err := flush(); err != nil {
				return res, fmt.Errorf("append through line %d: %w", res.Lines, err)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return res, fmt.Errorf("read line %d: %w", res.Lines+1, err)
	}
	if err := flush(); err != nil {
		return res, fmt.Errorf("append through line %d: %w", res.Lines, err)
	}
	return res, nil
}
