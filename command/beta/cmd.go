package beta

import (
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/command"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
)

var cmd = &command.Command{
	UsageLine: "beta -i [datasets_folder] -d [dataset[,dataset,...]]",
	Short:     "beta diversity matrices, ordinations and emperor plots",
	Long: `
Beta writes the scripts computing one distance matrix per (dataset,
metric), exporting each matrix to TSV, ordinating it with principal
coordinates, and rendering the ordination with emperor against the
sample metadata.

Outputs that already exist are skipped unless -force is set.
	`,
}

var (
	opts        pipeline.Options
	metricsFlag pipeline.List
)

func init() {
	cmd.Run = runBeta
	opts.Register(&cmd.Flag)
	cmd.Flag.Var(&metricsFlag, "metrics", "comma-separated beta diversity metrics")

	command.Register(cmd)
}

func runBeta(cmd *command.Command, args []string) error {
	run, err := opts.Setup()
	if err != nil {
		return err
	}
	metrics := []string(metricsFlag)
	if len(metrics) == 0 {
		metrics = pipeline.BetaMetrics
	}

	matrices, err := generateBeta(run, metrics)
	if err != nil {
		return err
	}
	if err := generateExport(run, matrices); err != nil {
		return err
	}
	pcoas, err := generatePcoas(run, matrices)
	if err != nil {
		return err
	}
	return generateEmperor(run, pcoas)
}
