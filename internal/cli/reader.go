package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when input is canceled by context.
var ErrInputCancelled = errors.New("input canceled")

// LineReader reads terminal input without blocking shutdown. Reads run in
// a goroutine so a canceled context returns control immediately even while
// stdin is still waiting for the user.
type LineReader struct {
	reader      *bufio.Reader
	readingLock sync.Mutex
}

// NewLineReader creates a reader over r, typically os.Stdin.
func NewLineReader(r io.Reader) *LineReader {
	if r == nil {
		panic("reader cannot be nil")
	}

	return &LineReader{
		reader: bufio.NewReader(r),
	}
}

// ReadLine reads one trimmed line, respecting context cancellation.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	type result struct {
		err   error
		value string
	}
	resultCh := make(chan result, 1)

	go func() {
		r.readingLock.Lock()
		defer r.readingLock.Unlock()

		value, err := r.reader.ReadString('\n')
		resultCh <- result{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		// The reading goroutine keeps waiting on stdin until the process
		// exits, but the caller gets control back now.
		return "", ErrInputCancelled
	case res := <-resultCh:
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.value), nil
	}
}

// Confirm prompts for a yes/no answer. Empty input means no.
func (r *LineReader) Confirm(ctx context.Context, w io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprint(w, FormatPrompt(prompt+" [y/N]")); err != nil {
		return false, err
	}

	line, err := r.ReadLine(ctx)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
