package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/cardvault"
	"github.com/etnz/cardvault/justtcg"
	"github.com/etnz/cardvault/renderer"
	"github.com/google/subcommands"
)

type searchCmd struct {
	provider  string
	game      string
	set       string
	expansion int
	limit     int
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search a card catalog" }
func (*searchCmd) Usage() string {
	return `cv search [-p lorcast|justtcg|cardtrader] [-g <game>] [-set <set>] <query>

  Searches printings and their near mint price. The keys found can be given
  to 'cv add'.

  lorcast    Lorcana cards, see https://lorcast.com/docs/api for the query syntax.
  justtcg    any game JustTCG prices, needs JUSTTCG_API_KEY.
  cardtrader blueprints of a CardTrader expansion (-e), needs CARDTRADER_TOKEN.
`
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.provider, "p", "lorcast", "Catalog: lorcast, justtcg or cardtrader")
	f.StringVar(&c.game, "g", "", "Game, for justtcg and cardtrader")
	f.StringVar(&c.set, "set", "", "Set id, for justtcg")
	f.IntVar(&c.expansion, "e", 0, "Expansion id, for cardtrader")
	f.IntVar(&c.limit, "n", 20, "Maximum number of cards")
}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	query := strings.Join(f.Args(), " ")
	if query == "" && c.provider != "cardtrader" {
		fmt.Fprintln(os.Stderr, "Error: a query is required")
		return subcommands.ExitUsageError
	}
	p, err := NewProviders()
	if err != nil {
		return failed("%v", err)
	}

	result := &renderer.Search{Provider: c.provider, Query: query}
	switch c.provider {
	case "lorcast":
		err = c.lorcast(ctx, p, result)
	case "justtcg":
		err = c.justtcg(ctx, p, result)
	case "cardtrader":
		err = c.cardtrader(ctx, p, result)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown catalog %q\n", c.provider)
		return subcommands.ExitUsageError
	}
	if err != nil {
		return failed("%v", err)
	}
	if c.limit > 0 && len(result.Cards) > c.limit {
		result.Cards = result.Cards[:c.limit]
	}
	printMarkdown(renderer.RenderSearch(result))
	return subcommands.ExitSuccess
}

func (c *searchCmd) lorcast(ctx context.Context, p *Providers, result *renderer.Search) error {
	cards, err := p.Lorcast.Search(ctx, result.Query)
	if err != nil {
		return err
	}
	for _, card := range cards {
		for _, finish := range []cardvault.Finish{cardvault.Normal, cardvault.Foil} {
			price, ok := card.Price(finish)
			if !ok && finish != cardvault.Normal {
				continue
			}
			result.Add(card.Printing(finish), price)
		}
	}
	return nil
}

func (c *searchCmd) justtcg(ctx context.Context, p *Providers, result *renderer.Search) error {
	if p.JustTCG == nil {
		return justtcg.ErrNoKey
	}
	cards, err := p.JustTCG.Cards(ctx, justtcg.CardQuery{
		Query:     result.Query,
		Game:      c.game,
		Set:       c.set,
		Condition: justtcg.ConditionName(cardvault.NearMint),
		Limit:     c.limit,
	})
	if err != nil {
		return err
	}
	for _, card := range cards {
		for _, v := range card.Variants {
			result.Add(card.Printing(v), cardvault.M(v.Price, "USD"))
		}
	}
	return nil
}

func (c *searchCmd) cardtrader(ctx context.Context, p *Providers, result *renderer.Search) error {
	if p.CardTrader == nil {
		return fmt.Errorf("cardtrader search needs %s", "CARDTRADER_TOKEN")
	}
	if c.expansion == 0 {
		return fmt.Errorf("cardtrader search needs an expansion id (-e)")
	}
	game, err := cardvault.ParseGame(c.game)
	if err != nil {
		return err
	}
	blueprints, err := p.CardTrader.Blueprints(ctx, c.expansion)
	if err != nil {
		return err
	}
	q := strings.ToLower(result.Query)
	for _, b := range blueprints {
		if q != "" && !strings.Contains(strings.ToLower(b.Name), q) {
			continue
		}
		result.Add(b.Printing(game), cardvault.Money{})
	}
	return nil
}
