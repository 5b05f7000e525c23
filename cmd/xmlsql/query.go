package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/deidaraiorek/xmlsql/internal/engine"
	"github.com/deidaraiorek/xmlsql/internal/ingest"
	"github.com/deidaraiorek/xmlsql/internal/storage"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Load documents and run one query",
	Long: `Load the given documents, run a single selector, SQL or text query and
print the result. Combine with --import and --export to work against a saved store.`,
	Example: `  xmlsql query --xml catalog.xml --selector 'book[lang=en] > title'
  xmlsql query --html page.html --sql 'SELECT tag_name, COUNT(*) FROM nodes GROUP BY 1'
  xmlsql --import store.db query --text 'running cats'`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

var (
	queryXMLFiles  []string
	queryHTMLFiles []string
	queryURLs      []string
	querySelector  string
	querySQL       string
	queryText      string
	queryJSON      bool
)

func init() {
	queryCmd.Flags().StringArrayVar(&queryXMLFiles, "xml", nil, "XML file to load (repeatable)")
	queryCmd.Flags().StringArrayVar(&queryHTMLFiles, "html", nil, "HTML file to load (repeatable)")
	queryCmd.Flags().StringArrayVar(&queryURLs, "url", nil, "URL to fetch and load (repeatable)")
	queryCmd.Flags().StringVarP(&querySelector, "selector", "s", "", "CSS selector to run")
	queryCmd.Flags().StringVar(&querySQL, "sql", "", "SQL to run")
	queryCmd.Flags().StringVarP(&queryText, "text", "t", "", "Terms to search for")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the result as JSON")
	queryCmd.MarkFlagsMutuallyExclusive("selector", "sql", "text")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := loadFiles(queryXMLFiles, eng.LoadXML); err != nil {
		return err
	}
	if err := loadFiles(queryHTMLFiles, eng.LoadHTML); err != nil {
		return err
	}
	for _, u := range queryURLs {
		if _, err := eng.LoadURL(cmd.Context(), u, ""); err != nil {
			return fmt.Errorf("%s: %w", u, err)
		}
	}

	result, err := runOneQuery(eng)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		return printJSON(out, result)
	}
	printResult(out, result)
	return nil
}

// runOneQuery returns nil when no query flag is set, so a command can
// only load documents and --export them.
func runOneQuery(e *engine.Engine) (*storage.ResultSet, error) {
	switch {
	case querySelector != "":
		return e.QuerySelector(querySelector)
	case querySQL != "":
		return e.ExecuteQuery(querySQL)
	case queryText != "":
		return e.SearchText(queryText)
	}
	return nil, nil
}

func loadFiles(paths []string, load func(text, name string) (*ingest.Result, error)) error {
	for _, path := range paths {
		text, err := readInput(path)
		if err != nil {
			return err
		}
		if _, err := load(text, documentName(path)); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func documentName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return filepath.Base(path)
}
