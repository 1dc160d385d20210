package imports

import (
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/command"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
)

var cmd = &command.Command{
	UsageLine: "import -i [datasets_folder] -d [dataset[,dataset,...]]",
	Short:     "import feature tables as QIIME2 artefacts",
	Long: `
Import writes the scripts turning each discovered feature table into a
QIIME2 FeatureTable artefact next to its source file, converting TSV
tables through biom first. Every later stage consumes these artefacts.

Outputs that already exist are skipped unless -force is set.
	`,
}

var opts pipeline.Options

func init() {
	cmd.Run = runImport
	opts.Register(&cmd.Flag)

	command.Register(cmd)
}

func runImport(cmd *command.Command, args []string) error {
	run, err := opts.Setup()
	if err != nil {
		return err
	}
	return generate(run)
}
