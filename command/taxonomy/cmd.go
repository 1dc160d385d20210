package taxonomy

import (
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/command"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
)

var cmd = &command.Command{
	UsageLine: "taxonomy -i [datasets_folder] -d [dataset[,dataset,...]]",
	Short:     "taxonomic assignment and composition barplots",
	Long: `
Taxonomy writes the scripts assigning a taxon to each feature and
rendering per-sample composition barplots. With -classifier, the
feature names are written as sequences, imported and classified with
the given fitted classifier (classify-sklearn); without one, each
feature name is taken as its own taxon, for tables whose names already
carry a lineage.

Outputs that already exist are skipped unless -force is set.
	`,
}

var (
	opts           pipeline.Options
	classifierFlag string
)

func init() {
	cmd.Run = runTaxonomy
	opts.Register(&cmd.Flag)
	cmd.Flag.StringVar(&classifierFlag, "classifier", "", "fitted taxonomic classifier artefact")

	command.Register(cmd)
}

func runTaxonomy(cmd *command.Command, args []string) error {
	run, err := opts.Setup()
	if err != nil {
		return err
	}
	assignments, err := generateTaxonomy(run, classifierFlag)
	if err != nil {
		return err
	}
	return generateBarplot(run, assignments)
}
