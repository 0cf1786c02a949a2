// Command pcs manages a Taiwan stock portfolio from the command line.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/stockfolio/cmd"
	"github.com/etnz/stockfolio/docs"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	name := path.Base(os.Args[0])
	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	// Exits when invoked by the shell for completion.
	completion(commander).Complete(name)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the subcommands and their flags to the shell.
func completion(commander *subcommands.Commander) *complete.Command {
	root := &complete.Command{
		Sub:   map[string]*complete.Command{},
		Flags: flags(flag.CommandLine),
	}
	commander.VisitCommands(func(_ *subcommands.CommandGroup, c subcommands.Command) {
		fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
		c.SetFlags(fs)
		var args complete.Predictor = predict.Something
		if c.Name() == "topic" {
			args = predict.Set(docs.AllTopics())
		}
		root.Sub[c.Name()] = &complete.Command{Flags: flags(fs), Args: args}
	})
	return root
}

func flags(fs *flag.FlagSet) map[string]complete.Predictor {
	res := map[string]complete.Predictor{}
	fs.VisitAll(func(f *flag.Flag) {
		switch {
		case isBool(f):
			res[f.Name] = predict.Nothing
		case f.Name == "store" || f.Name == "env" || f.Name == "from" || f.Name == "html":
			res[f.Name] = predict.Files("*")
		case f.Name == "policy":
			res[f.Name] = predict.Set{"continue", "stop"}
		case f.Name == "log-level":
			res[f.Name] = predict.Set{"debug", "info", "warn", "error", "off"}
		default:
			res[f.Name] = predict.Something
		}
	})
	return res
}

func isBool(f *flag.Flag) bool {
	b, ok := f.Value.(interface{ IsBoolFlag() bool })
	return ok && b.IsBoolFlag()
}
