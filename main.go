package main

import (
	"bufio"
	"flag"
	"io"
	"os"
	"strings"
	"text/template"

	log "github.com/sirupsen/logrus"

	"github.com/FranckLejzerowicz/routine-qiime2-analyses/command"
	_ "github.com/FranckLejzerowicz/routine-qiime2-analyses/command/alpha"
	_ "github.com/FranckLejzerowicz/routine-qiime2-analyses/command/beta"
	_ "github.com/FranckLejzerowicz/routine-qiime2-analyses/command/doc"
	_ "github.com/FranckLejzerowicz/routine-qiime2-analyses/command/imports"
	_ "github.com/FranckLejzerowicz/routine-qiime2-analyses/command/kruskal"
	_ "github.com/FranckLejzerowicz/routine-qiime2-analyses/command/permanova"
	_ "github.com/FranckLejzerowicz/routine-qiime2-analyses/command/taxonomy"
)

// version is set at compile time when built with the following command:
// go build -ldflags "-X main.version=$(git rev-parse --short HEAD)"
var version string
var versionFlag bool

var commands = command.Commands

func init() {
	flag.BoolVar(&versionFlag, "version", false, "")
}

func main() {
	flag.Usage = usage
	flag.Parse()
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	if versionFlag {
		log.Printf("%s", version)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		usage()
		return
	}

	if args[0] == "help" {
		help(args[1:])
		return
	}

	for _, cmd := range commands {
		if cmd.Name() == args[0] {
			cmd.Flag.Usage = func() { cmd.Usage(nil) }
			cmd.Flag.Parse(args[1:])
			args = cmd.Flag.Args()
			if err := cmd.Run(cmd, args); err != nil {
				cmd.Usage(err)
			}
			return
		}
	}

	log.Fatalf("q2routine: unknown subcommand %q\nRun 'q2routine help' for usage.\n", args[0])
}

var usageTemplate = `q2routine writes the shell scripts and cluster job files running a
routine of QIIME2 analyses (import, alpha, beta, taxonomy, statistical
tests and dissimilarity-overlap curves) over datasets discovered in a folder,
with declarative YAML-driven metadata subsets.

Usage:

	q2routine command [arguments]

The commands are:
{{range .}}
	{{.Name | printf "%-11s"}} {{.Short}}{{end}}

Use "q2routine help [command]" for more information about a command.
`

var helpTemplate = `usage: q2routine {{.UsageLine}}

{{.Long | trim}}
`

// tmpl executes the given template text on data, writing the result to w.
func tmpl(w io.Writer, text string, data interface{}) {
	t := template.Must(template.New("root").Funcs(template.FuncMap{"trim": strings.TrimSpace}).Parse(text))
	err := t.Execute(w, data)
	if err != nil {
		panic(err)
	}
}

func printUsage(w io.Writer) {
	bw := bufio.NewWriter(w)
	tmpl(bw, usageTemplate, commands)
	bw.Flush()
}

func usage() {
	printUsage(os.Stderr)
}

// help implements the 'help' command.
func help(args []string) {
	if len(args) == 0 {
		printUsage(os.Stdout)
		return
	}

	if len(args) != 1 {
		log.Fatal("usage: q2routine help command\n\nToo many arguments given.")
	}

	arg := args[0]

	for _, cmd := range commands {
		if cmd.Name() == arg {
			tmpl(os.Stdout, helpTemplate, cmd)
			return
		}
	}

	log.Fatalf("Unknown help topic %#q.  Run 'q2routine help'.\n", arg)
}
