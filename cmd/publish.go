package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/archive"
	"github.com/etnz/cardvault/date"
	"github.com/etnz/cardvault/renderer"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

// reportTask is a report to publish, it is also the front matter template
// data.
type reportTask struct {
	Collection string
	Report     string
	Period     date.Period
	Range      date.Range
}

// Identifier is the file name of the report, without extension.
func (t reportTask) Identifier() string { return t.Range.Identifier(t.Period) }

type publishCmd struct {
	outputDir      string
	frontMatterTpl string
	periods        string
	s3             bool
}

func (*publishCmd) Name() string { return "publish" }

func (*publishCmd) Synopsis() string { return "generates the historical reports of every collection" }

func (*publishCmd) Usage() string {
	return `cv publish [-o <dir>] [-frontmatter <file>] [-periods monthly,yearly] [-s3]

  Generates, for every collection, the holding reports at the end of each
  period since the first transaction, the listings report and the collection
  transactions, in a structured directory tree:

    <dir>/<collection>/holding/<period>/<identifier>.md
    <dir>/<collection>/listings.md
    <dir>/<collection>/<collection>.jsonl

  -s3 uploads the tree to the archive bucket of the configuration.
`
}

func (c *publishCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.outputDir, "o", "reports", "Root directory for the generated reports")
	f.StringVar(&c.frontMatterTpl, "frontmatter", "", "Path to a Go template file for the report front matter")
	f.StringVar(&c.periods, "periods", "monthly,quarterly,yearly", "Comma separated periods of the holding reports")
	f.BoolVar(&c.s3, "s3", false, "Upload the reports to the configured S3 bucket")
}

func (c *publishCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var frontMatterTpl *template.Template
	if c.frontMatterTpl != "" {
		var err error
		frontMatterTpl, err = template.ParseFiles(c.frontMatterTpl)
		if err != nil {
			return failed("failed to parse front matter template: %v", err)
		}
	}
	var periods []date.Period
	for _, name := range strings.Split(c.periods, ",") {
		p, err := date.ParsePeriod(strings.TrimSpace(name))
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return subcommands.ExitUsageError
		}
		periods = append(periods, p)
	}

	st, err := OpenStore(ctx)
	if err != nil {
		return failed("%v", err)
	}
	defer st.Close()
	names, err := st.Collections(ctx)
	if err != nil {
		return failed("%v", err)
	}

	logger := Logger()
	end := cardvault.Today()
	for _, name := range names {
		l, err := st.Load(ctx, name)
		if err != nil {
			return failed("%v", err)
		}
		files, err := publishCollection(l, generatePeriods(l.OldestTransactionDate(), end, periods...), frontMatterTpl)
		if err != nil {
			return failed("%v", err)
		}
		for file, content := range files {
			fullPath := filepath.Join(c.outputDir, name, filepath.FromSlash(file))
			if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
				return failed("failed to create output directory for file %s: %v", file, err)
			}
			if err := os.WriteFile(fullPath, content, 0644); err != nil {
				return failed("failed to write file %s: %v", file, err)
			}
		}
		logger.Info("published collection", zap.String("collection", name), zap.Int("files", len(files)))
	}

	if c.s3 {
		conf, err := Config()
		if err != nil {
			return failed("%v", err)
		}
		if conf.Archive.Bucket == "" {
			return failed("no archive bucket configured, see 'cv topic config'")
		}
		up, err := archive.NewS3(conf.Archive.Bucket, conf.Archive.Prefix, conf.Archive.Region)
		if err != nil {
			return failed("%v", err)
		}
		n, err := archive.Dir(ctx, up, os.DirFS(c.outputDir), logger)
		if err != nil {
			return failed("%v", err)
		}
		fmt.Fprintf(os.Stderr, "Uploaded %d files to s3://%s/%s\n", n, up.Bucket, up.Prefix)
	}
	return subcommands.ExitSuccess
}

// publishCollection renders the reports of a collection, by slash separated
// file path.
func publishCollection(l *cardvault.Ledger, tasks []reportTask, frontMatterTpl *template.Template) (map[string][]byte, error) {
	files := make(map[string][]byte)
	currency := Currency()
	for _, task := range tasks {
		task.Collection = l.Name()
		md := renderer.RenderHolding(renderer.NewHolding(l.NewSnapshot(task.Range.To), currency))
		if frontMatterTpl != nil {
			fm, err := renderFrontMatter(frontMatterTpl, task)
			if err != nil {
				return nil, fmt.Errorf("failed to render front matter for %s report %s: %w", task.Report, task.Identifier(), err)
			}
			md = fm + "\n" + md
		}
		files[path.Join(task.Report, task.Period.String(), task.Identifier()+".md")] = []byte(md)
	}

	files["listings.md"] = []byte(renderer.RenderListings(renderer.NewListings(l.NewSnapshot(cardvault.Today()), true)))

	var jsonl bytes.Buffer
	if err := cardvault.EncodeLedger(&jsonl, l); err != nil {
		return nil, err
	}
	files[l.Name()+".jsonl"] = jsonl.Bytes()
	return files, nil
}

// generatePeriods returns the holding tasks of every period from startDate
// to endDate.
func generatePeriods(startDate, endDate date.Date, periods ...date.Period) []reportTask {
	var tasks []reportTask
	if startDate.IsZero() {
		// no transactions
		return tasks
	}
	for _, p := range periods {
		for r := date.NewRange(startDate, p); !r.From.After(endDate); r = date.NewRange(r.To.Add(1), p) {
			tasks = append(tasks, reportTask{Report: "holding", Period: p, Range: r})
		}
	}
	return tasks
}

func renderFrontMatter(tpl *template.Template, task reportTask) (string, error) {
	var fmBuffer bytes.Buffer
	if err := tpl.Execute(&fmBuffer, task); err != nil {
		return "", err
	}
	return fmBuffer.String(), nil
}
