// Command ptdict builds, inspects and serves Patricia trie dictionaries.
//
// Usage:
//
//	ptdict build -in words.txt -out words.ptd [-freq] [-attr key=value]...
//	ptdict query -dict words.ptd [-limit n] [-min n] [prefix...]
//	ptdict dump -dict words.ptd
//	ptdict serve -dict words.ptd [-addr :4040]
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/milden6/ptdict"
	"github.com/milden6/ptdict/internal/server"
	"github.com/milden6/ptdict/internal/wordlist"
)

const usage = `usage: ptdict <command> [flags]

commands:
  build   build a dictionary from a word list
  query   print the words starting with each prefix
  dump    print the layout of a dictionary
  serve   serve suggestions over HTTP
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "build":
		err = runBuild(args)
	case "query":
		err = runQuery(args, os.Stdin, os.Stdout)
	case "dump":
		err = runDump(args, os.Stdout)
	case "serve":
		err = runServe(args)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "ptdict: %v\n", err)
		os.Exit(1)
	}
}

// attributes collects repeated -attr key=value flags.
type attributes map[string]string

func (a attributes) String() string {
	pairs := make([]string, 0, len(a))
	for k, v := range a {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (a attributes) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok || k == "" {
		return fmt.Errorf("attribute %q is not key=value", value)
	}
	a[k] = v
	return nil
}

func newLogger(level string, service string) logger.Logger {
	logger.New(level)
	return logger.Sugar.WithServiceName(service)
}

func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	in := fs.String("in", "", "word list to read, plain or combined format")
	out := fs.String("out", "", "dictionary file to write")
	freq := fs.Bool("freq", false, "store word frequencies")
	level := fs.String("log", "INFO", "log level")
	attrs := attributes{}
	fs.Var(attrs, "attr", "header attribute as key=value, may be repeated")
	fs.Parse(args)

	if *in == "" || *out == "" {
		return errors.New("build needs -in and -out")
	}

	log := newLogger(*level, "build")
	defer logger.OnExit()

	f, err := os.Open(*in)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	trie := ptdict.NewTrie()
	v := ptdict.NewValidator(trie)
	err = wordlist.Parse(bufio.NewReader(f), func(e wordlist.Entry) error {
		return v.AddWordFrequency(e.Word, e.Frequency)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", *in, err)
	}
	log.Infof("loading finished, took %v, %d words, %d nodes",
		time.Since(start), trie.NumWords(), trie.NumNodes())

	start = time.Now()
	if err := v.Validate(); err != nil {
		return err
	}
	log.Infof("validation finished, took %v", time.Since(start))

	start = time.Now()
	n, err := trie.Save(*out,
		ptdict.WithFrequencies(*freq),
		ptdict.WithAttributes(attrs),
		ptdict.WithLogger(log))
	if err != nil {
		return err
	}
	log.Infof("wrote %s, %d bytes, took %v", *out, n, time.Since(start))
	return nil
}

func runQuery(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	dictFile := fs.String("dict", "", "dictionary file")
	limit := fs.Int("limit", 0, "maximum number of words per prefix, 0 for all")
	minPrefix := fs.Int("min", 0, "minimum prefix length")
	fs.Parse(args)

	if *dictFile == "" {
		return errors.New("query needs -dict")
	}

	dict, err := ptdict.Load(*dictFile)
	if err != nil {
		return err
	}
	defer dict.Close()

	w := bufio.NewWriter(stdout)
	defer w.Flush()

	query := func(prefix string) error {
		if utf8.RuneCountInString(prefix) < *minPrefix {
			fmt.Fprintf(w, "%s: prefix too short\n", prefix)
			return nil
		}
		words, err := dict.Suggest(prefix, *limit)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %s\n", prefix, strings.Join(words, " "))
		return nil
	}

	if fs.NArg() > 0 {
		for _, prefix := range fs.Args() {
			if err := query(prefix); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if err := query(strings.TrimSpace(scanner.Text())); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func runDump(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	dictFile := fs.String("dict", "", "dictionary file")
	fs.Parse(args)

	if *dictFile == "" {
		return errors.New("dump needs -dict")
	}

	dict, err := ptdict.Load(*dictFile)
	if err != nil {
		return err
	}
	defer dict.Close()

	w := bufio.NewWriter(stdout)
	if err := dict.Dump(w); err != nil {
		return err
	}
	return w.Flush()
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	dictFile := fs.String("dict", "", "dictionary file")
	addr := fs.String("addr", ":4040", "listen address")
	minPrefix := fs.Int("min", 1, "minimum prefix length")
	limit := fs.Int("limit", 50, "maximum number of words per query")
	level := fs.String("log", "INFO", "log level")
	fs.Parse(args)

	if *dictFile == "" {
		return errors.New("serve needs -dict")
	}

	log := newLogger(*level, "serve")
	defer logger.OnExit()

	dict, err := ptdict.Load(*dictFile, ptdict.WithLogger(log))
	if err != nil {
		return err
	}
	defer dict.Close()
	log.Infof("loaded %s: %d words, %d bytes", *dictFile, dict.NumWords(), dict.Size())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Addr:      *addr,
		MinPrefix: *minPrefix,
		Limit:     *limit,
	}, dict, log)
	return srv.ListenAndServe(ctx)
}
