// Package wordlist reads the word lists dictionaries are built from.
//
// Two formats are understood, and may be mixed in one file. A plain list has
// one word per line. A combined list starts with a "dictionary=..." header
// and has one entry per line of the form
//
//	 word=the,f=222,flags=,originalFreq=222
//
// where f is the frequency. Shortcut and bigram entries are ignored, as are
// blank lines and lines starting with #. Any other line is a plain word, even
// one containing '=' or starting with "dictionary".
package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var ErrMalformedLine = errors.New("malformed word list line")

// Entry is one word read from a list. Frequency is zero for plain lists.
type Entry struct {
	Word      string
	Frequency int
}

// Parse calls fn for every word in r, in file order. It stops at the first
// error returned by fn.
func Parse(r io.Reader, fn func(Entry) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++

		entry, ok, err := parseLine(scanner.Text())
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			continue
		}
		if err := fn(entry); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return scanner.Err()
}

func parseLine(text string) (Entry, bool, error) {
	if strings.HasPrefix(text, "dictionary=") {
		return Entry{}, false, nil
	}

	l := strings.TrimSpace(text)
	if l == "" || strings.HasPrefix(l, "#") {
		return Entry{}, false, nil
	}

	if !strings.HasPrefix(l, "word=") {
		if isKeyLine(l) {
			return Entry{}, false, nil
		}
		return Entry{Word: l}, true, nil
	}

	var entry Entry
	for _, field := range strings.Split(l, ",") {
		key, value, found := strings.Cut(field, "=")
		if !found {
			return Entry{}, false, fmt.Errorf("%w: field %q without a value", ErrMalformedLine, field)
		}

		switch key {
		case "word":
			entry.Word = value
		case "f":
			f, err := strconv.Atoi(value)
			if err != nil {
				return Entry{}, false, fmt.Errorf("%w: frequency %q", ErrMalformedLine, value)
			}
			entry.Frequency = f
		}
	}

	if entry.Word == "" {
		return Entry{}, false, fmt.Errorf("%w: empty word", ErrMalformedLine)
	}
	return entry, true, nil
}

// keyLines are the combined format entries that carry no word of their own.
var keyLines = []string{"shortcut=", "bigram="}

func isKeyLine(l string) bool {
	for _, prefix := range keyLines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
