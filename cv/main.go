// Command cv manages trading card collections. See 'cv topic readme'.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/etnz/cardvault/cmd"
	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, "cv")
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	commander.Register(commander.CommandsCommand(), "help")
	cmd.Register(commander)

	// exits when invoked by the shell for completion.
	cmd.Completion(commander).Complete("cv")

	flag.Parse()
	if sub := flag.Arg(0); sub != "" && !isCommand(commander, sub) {
		if found, code := cmd.RunExtension(sub, flag.Args()[1:]); found {
			os.Exit(code)
		}
	}
	status := commander.Execute(context.Background())
	cmd.Logger().Sync()
	os.Exit(int(status))
}

func isCommand(c *subcommands.Commander, name string) (found bool) {
	c.VisitCommands(func(_ *subcommands.CommandGroup, sub subcommands.Command) {
		found = found || sub.Name() == name
	})
	return found
}
