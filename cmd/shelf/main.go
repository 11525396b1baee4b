package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aigotowork/shelf"
	"github.com/aigotowork/shelf/internal/fsutil"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errNotFound marks a user-facing lookup failure.
var errNotFound = errors.New("not found")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `shelf - inspect a shelf key-value database

Usage:
  shelf -f FILE [-v] <command> [options]

Commands:
  list-namespaces   List all namespaces in the database
  list-keys         List keys in a namespace or all namespaces
  get               Get value(s) from a namespace

Examples:
  shelf -f app.db list-namespaces
  shelf -f app.db list-keys -n users
  shelf -f app.db get -n users -k alice
  shelf -f app.db get -n data -x -k 0x89504e47`)
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("shelf", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }

	file := fs.String("f", "", "Path to the shelf database file (required)")
	verbose := fs.Bool("v", false, "Log store events to stderr")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *file == "" {
		fmt.Fprintln(stderr, "shelf: -f is required")
		printUsage(stderr)
		return exitUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(stderr, "shelf: a command is required")
		printUsage(stderr)
		return exitUsage
	}

	command, rest := fs.Arg(0), fs.Args()[1:]

	var cmd func(store shelf.Store, args []string, stdout, stderr io.Writer) error
	switch command {
	case "list-namespaces":
		cmd = listNamespacesCmd
	case "list-keys":
		cmd = listKeysCmd
	case "get":
		cmd = getCmd
	case "help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "shelf: unknown command: %s\n", command)
		printUsage(stderr)
		return exitUsage
	}

	logger := shelf.NewNoopLogger()
	if *verbose {
		logger = shelf.NewLogger(stderr, shelf.LevelDebug)
	}

	// Inspection never creates a database.
	if !strings.HasPrefix(*file, "file:") && !fsutil.IsMemory(*file) && !fsutil.FileExists(*file) {
		fmt.Fprintf(stderr, "shelf: database file not found: %s\n", *file)
		return exitError
	}

	store, err := shelf.Open(*file, shelf.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(stderr, "shelf: %v\n", err)
		return exitError
	}
	defer store.Close()

	if err := cmd(store, rest, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "shelf: %v\n", err)
		if errors.Is(err, errNotFound) || isUsage(err) {
			return exitUsage
		}
		return exitError
	}
	return exitOK
}

// usageError is returned for bad subcommand arguments.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func isUsage(err error) bool {
	var u usageError
	return errors.As(err, &u)
}

func listNamespacesCmd(store shelf.Store, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("list-namespaces", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	names, err := store.ListNamespaces()
	if err != nil {
		return err
	}
	for _, ns := range names {
		fmt.Fprintln(stdout, ns)
	}
	return nil
}

func listKeysCmd(store shelf.Store, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("list-keys", flag.ContinueOnError)
	fs.SetOutput(stderr)
	namespace := fs.String("n", "", "Namespace to list keys from (default: all namespaces)")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	if flagSet(fs, "n") {
		keys, err := store.ListKeys(*namespace)
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Fprintln(stdout, key)
		}
		return nil
	}

	names, err := store.ListNamespaces()
	if err != nil {
		return err
	}
	for _, ns := range names {
		keys, err := store.ListKeys(ns)
		if err != nil {
			return err
		}
		for _, key := range keys {
			fmt.Fprintf(stdout, "%s\t%s\n", ns, key)
		}
	}
	return nil
}

func getCmd(store shelf.Store, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(stderr)
	namespace := fs.String("n", "", "Namespace to get values from (required)")
	key := fs.String("k", "", "Key to get (default: every key in the namespace)")
	hexKey := fs.Bool("x", false, "Read -k as hex bytes, as list-keys prints binary keys (0x prefix optional)")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}
	if !flagSet(fs, "n") {
		return usageError{"get: -n is required"}
	}

	if flagSet(fs, "k") {
		lookup := shelf.TextKey(*key)
		if *hexKey {
			raw, err := hex.DecodeString(strings.TrimPrefix(*key, "0x"))
			if err != nil {
				return usageError{fmt.Sprintf("get: -k is not valid hex: %v", err)}
			}
			lookup = shelf.BinaryKey(raw)
		}

		value, found, err := store.Get(*namespace, lookup)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("key %q %w in namespace %q", *key, errNotFound, *namespace)
		}
		return dumpValue(stdout, value)
	}

	keys, err := store.ListKeys(*namespace)
	if err != nil {
		return err
	}
	values, err := store.GetMany(*namespace, keys)
	if err != nil {
		return err
	}
	for _, k := range keys {
		value, ok := values[k]
		if !ok {
			continue
		}
		fmt.Fprintf(stdout, "%s\t", k)
		if err := dumpValue(stdout, value); err != nil {
			return err
		}
	}
	return nil
}

// dumpValue writes bytes raw, maps and slices as indented JSON and
// everything else on one line.
func dumpValue(w io.Writer, value any) error {
	switch v := value.(type) {
	case []byte:
		_, err := w.Write(v)
		return err
	case nil:
		_, err := fmt.Fprintln(w, "null")
		return err
	case map[string]any, []any:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		_, err := fmt.Fprintln(w, v)
		return err
	}
}

func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
