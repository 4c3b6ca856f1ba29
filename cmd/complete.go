package cmd

import (
	"flag"
	"strings"

	"github.com/etnz/cardvault/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion builds the shell completion tree of the commander's commands.
func Completion(c *subcommands.Commander) *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flagPredictors(flag.CommandLine),
	}
	c.VisitCommands(func(_ *subcommands.CommandGroup, sub subcommands.Command) {
		fs := flag.NewFlagSet(sub.Name(), flag.ContinueOnError)
		sub.SetFlags(fs)
		root.Sub[sub.Name()] = &complete.Command{
			Flags: flagPredictors(fs),
			Args:  argPredictor(sub.Name()),
		}
	})
	return root
}

func flagPredictors(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		switch {
		case isBool(f):
			flags[f.Name] = predict.Nothing
		case f.Name == "config" || f.Name == "frontmatter":
			flags[f.Name] = predict.Files("*")
		case f.Name == "o":
			flags[f.Name] = predict.Dirs("*")
		case f.Name == "cond":
			flags[f.Name] = predict.Set{"NM", "LP", "MP", "HP", "DMG"}
		case f.Name == "p" && strings.HasPrefix(f.Usage, "Catalog"):
			flags[f.Name] = predict.Set{"lorcast", "justtcg", "cardtrader"}
		default:
			flags[f.Name] = predict.Something
		}
	})
	return flags
}

func isBool(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}

func argPredictor(command string) complete.Predictor {
	switch command {
	case "import":
		return predict.Files("*.csv")
	case "topic":
		topics, _ := docs.GetAllTopics()
		return predict.Set(topics)
	default:
		return nil
	}
}
