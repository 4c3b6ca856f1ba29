package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/agent"
	"github.com/etnz/cardvault/renderer"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

type assistCmd struct {
	collection string
	model      string
}

func (*assistCmd) Name() string { return "assist" }

func (*assistCmd) Synopsis() string { return "chat about a collection with an AI assistant" }

func (*assistCmd) Usage() string {
	return `cv assist [-c <collection>] [<question>...]

  Starts an interactive session with a Gemini assistant that can read the
  collection and search the web for card prices. GEMINI_API_KEY must be set.
`
}

func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.collection, "c", "", "Collection. Defaults to the only collection.")
	f.StringVar(&c.model, "model", agent.Model, "Gemini model")
}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	st, err := OpenStore(ctx)
	if err != nil {
		return failed("%v", err)
	}
	defer st.Close()
	// the collection is reloaded for every question, to see changes made
	// meanwhile.
	load := func(ctx context.Context) (*cardvault.Ledger, error) {
		return LoadCollection(ctx, st, c.collection)
	}
	if _, err := load(ctx); err != nil {
		return failed("could not load collection: %v", err)
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	agent.Model = c.model
	appraiser := agent.NewAppraiser()
	curator := agent.NewCurator(load, Currency())
	curator.Logger = Logger()
	a := agent.New(os.Stdout, os.Stdin, appraiser, curator)
	a.Format = func(md string) string {
		out, err := renderer.Terminal(md, 100)
		if err != nil {
			return md
		}
		return out
	}

	var prompts []string
	if f.NArg() > 0 {
		prompts = append(prompts, strings.Join(f.Args(), " "))
	}
	if err := a.Run(ctx, client, prompts...); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
