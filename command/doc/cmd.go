package doc

import (
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/command"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
)

var cmd = &command.Command{
	UsageLine: "doc -i [datasets_folder] -d [dataset[,dataset,...]] -g [groups.yml]",
	Short:     "dissimilarity-overlap curve analysis per case subset",
	Long: `
Doc writes the scripts running the dissimilarity-overlap curve (DOC)
analysis on each {dataset x case} subset. Each case gets its own
output directory holding the subset metadata, the filtered feature
table, a generated R driver, and the DOC results; the presence of
DO.tsv marks a case as done.

Outputs that already exist are skipped unless -force is set.
	`,
}

var opts pipeline.Options

func init() {
	cmd.Run = runDoc
	opts.Register(&cmd.Flag)

	command.Register(cmd)
}

func runDoc(cmd *command.Command, args []string) error {
	run, err := opts.Setup()
	if err != nil {
		return err
	}
	collection, err := opts.Cases()
	if err != nil {
		return err
	}
	return generate(run, collection)
}
