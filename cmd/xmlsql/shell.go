package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/deidaraiorek/xmlsql/internal/engine"
	"github.com/deidaraiorek/xmlsql/internal/ingest"
	"github.com/deidaraiorek/xmlsql/internal/storage"
)

const historyFile = ".xmlsql_history"

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive shell",
	Long: `Start an interactive shell. Lines starting with a dot are commands
(see .help); anything else runs as a CSS selector.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

func runShell(cmd *cobra.Command, args []string) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	sh := newShell(eng, cmd.OutOrStdout())
	line.SetCompleter(sh.complete)

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(sh.out, `xmlsql shell. Type .help for commands, .quit to leave.`)
	for {
		input, err := line.Prompt("xmlsql> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		quit, err := sh.exec(cmd.Context(), input)
		if err != nil {
			fmt.Fprintf(sh.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}
	return filepath.Join(home, historyFile)
}

type shellCommand struct {
	usage string
	help  string
	run   func(ctx context.Context, arg string) error
}

type shell struct {
	engine   *engine.Engine
	out      io.Writer
	commands map[string]shellCommand
}

func newShell(e *engine.Engine, out io.Writer) *shell {
	s := &shell{engine: e, out: out}
	s.commands = map[string]shellCommand{
		".xml":     {".xml FILE [NAME]", "load an XML file", s.loadFile(e.LoadXML)},
		".html":    {".html FILE [NAME]", "load an HTML file", s.loadFile(e.LoadHTML)},
		".url":     {".url URL [NAME]", "fetch and load a document", s.loadURL},
		".docs":    {".docs", "list loaded documents", s.listDocuments},
		".rm":      {".rm ID", "remove a document", s.removeDocument},
		".reset":   {".reset", "remove every document", s.reset},
		".stats":   {".stats", "show row counts", s.stats},
		".compile": {".compile SELECTOR", "show the SQL for a selector", s.compile},
		".sql":     {".sql QUERY", "run SQL", s.query(e.ExecuteQuery)},
		".text":    {".text TERMS", "full-text search over node text", s.query(e.SearchText)},
		".export":  {".export FILE", "write a snapshot of the store", s.export},
		".import":  {".import FILE", "replace the store with a snapshot", s.importFile},
	}
	return s
}

// exec runs one line of input. It reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, input string) (bool, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return false, nil
	}
	if !strings.HasPrefix(input, ".") {
		return false, s.query(s.engine.QuerySelector)(ctx, input)
	}

	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case ".quit", ".exit":
		return true, nil
	case ".help":
		s.help()
		return false, nil
	}

	cmd, ok := s.commands[name]
	if !ok {
		return false, fmt.Errorf("unknown command %s (try .help)", name)
	}
	return false, cmd.run(ctx, arg)
}

func (s *shell) help() {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cmd := s.commands[name]
		fmt.Fprintf(s.out, "  %-22s %s\n", cmd.usage, cmd.help)
	}
	fmt.Fprintf(s.out, "  %-22s %s\n", ".help", "show this help")
	fmt.Fprintf(s.out, "  %-22s %s\n", ".quit", "leave the shell")
	fmt.Fprintf(s.out, "  %-22s %s\n", "SELECTOR", "anything else runs as a CSS selector")
}

func (s *shell) complete(line string) []string {
	if !strings.HasPrefix(line, ".") || strings.Contains(line, " ") {
		return nil
	}
	var out []string
	for name := range s.commands {
		if strings.HasPrefix(name, line) {
			out = append(out, name+" ")
		}
	}
	sort.Strings(out)
	return out
}

// splitNameArg splits "PATH [NAME]" on the first space.
func splitNameArg(arg string) (string, string) {
	first, rest, _ := strings.Cut(arg, " ")
	return first, strings.TrimSpace(rest)
}

func (s *shell) loadFile(load func(text, name string) (*ingest.Result, error)) func(context.Context, string) error {
	return func(_ context.Context, arg string) error {
		path, name := splitNameArg(arg)
		if path == "" {
			return errors.New("missing file name")
		}
		text, err := readInput(path)
		if err != nil {
			return err
		}
		if name == "" {
			name = documentName(path)
		}
		res, err := load(text, name)
		if err != nil {
			return err
		}
		s.printLoaded(res)
		return nil
	}
}

func (s *shell) loadURL(ctx context.Context, arg string) error {
	url, name := splitNameArg(arg)
	if url == "" {
		return errors.New("missing URL")
	}
	res, err := s.engine.LoadURL(ctx, url, name)
	if err != nil {
		return err
	}
	s.printLoaded(res)
	return nil
}

func (s *shell) printLoaded(res *ingest.Result) {
	fmt.Fprintf(s.out, "document %d: %d nodes, %d attributes\n", res.DocumentID, res.NodeCount, res.AttributeCount)
}

func (s *shell) listDocuments(_ context.Context, _ string) error {
	docs, err := s.engine.ListDocuments()
	if err != nil {
		return err
	}
	printDocuments(s.out, docs)
	return nil
}

func (s *shell) removeDocument(_ context.Context, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid document id %q", arg)
	}
	if err := s.engine.RemoveDocument(id); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "removed document %d\n", id)
	return nil
}

func (s *shell) reset(_ context.Context, _ string) error {
	if err := s.engine.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "store is empty")
	return nil
}

func (s *shell) stats(_ context.Context, _ string) error {
	st, err := s.engine.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "documents: %d\nnodes: %d\nattributes: %d\n", st.Documents, st.Nodes, st.Attributes)
	return nil
}

func (s *shell) compile(_ context.Context, arg string) error {
	sql, err := s.engine.CompileSelector(arg)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, sql)
	return nil
}

func (s *shell) query(run func(string) (*storage.ResultSet, error)) func(context.Context, string) error {
	return func(_ context.Context, arg string) error {
		if arg == "" {
			return errors.New("missing query")
		}
		result, err := run(arg)
		if err != nil {
			return err
		}
		printResult(s.out, result)
		return nil
	}
}

func (s *shell) export(_ context.Context, arg string) error {
	if arg == "" {
		return errors.New("missing file name")
	}
	if err := exportSnapshot(s.engine, arg); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "snapshot written to %s\n", arg)
	return nil
}

func (s *shell) importFile(_ context.Context, arg string) error {
	if arg == "" {
		return errors.New("missing file name")
	}
	if err := importSnapshot(s.engine, arg); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "snapshot loaded from %s\n", arg)
	return nil
}
