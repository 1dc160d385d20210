package alpha

import (
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/command"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
)

var cmd = &command.Command{
	UsageLine: "alpha -i [datasets_folder] -d [dataset[,dataset,...]]",
	Short:     "alpha diversity vectors, metadata merge and correlations",
	Long: `
Alpha writes the scripts computing one alpha diversity vector per
(dataset, metric), merging the vectors into the sample metadata,
exporting the merged table, and correlating each vector with the
numeric metadata variables. With -longi, a volatility control chart
over the given time column is generated as well.

Outputs that already exist are skipped unless -force is set.
	`,
}

var (
	opts        pipeline.Options
	metricsFlag pipeline.List
	treeFlag    string
	longiFlag   string
)

func init() {
	cmd.Run = runAlpha
	opts.Register(&cmd.Flag)
	cmd.Flag.Var(&metricsFlag, "metrics", "comma-separated alpha diversity metrics")
	cmd.Flag.StringVar(&treeFlag, "tree", "", "rooted phylogeny artefact for faith_pd")
	cmd.Flag.StringVar(&longiFlag, "longi", "", "time metadata column for volatility")

	command.Register(cmd)
}

func runAlpha(cmd *command.Command, args []string) error {
	run, err := opts.Setup()
	if err != nil {
		return err
	}
	metrics := []string(metricsFlag)
	if len(metrics) == 0 {
		metrics = pipeline.AlphaMetrics
	}

	diversities, err := generateAlpha(run, metrics, treeFlag)
	if err != nil {
		return err
	}
	merged, err := generateMerge(run, diversities)
	if err != nil {
		return err
	}
	if err := generateExport(run, merged); err != nil {
		return err
	}
	if err := generateCorrelations(run, diversities); err != nil {
		return err
	}
	if longiFlag != "" {
		if err := generateVolatility(run, longiFlag); err != nil {
			return err
		}
	}
	return nil
}
