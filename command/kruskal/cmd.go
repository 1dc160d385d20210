package kruskal

import (
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/command"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
)

var cmd = &command.Command{
	UsageLine: "kruskal -i [datasets_folder] -d [dataset[,dataset,...]] -g [groups.yml]",
	Short:     "alpha group significance over every case subset",
	Long: `
Kruskal writes the scripts testing each alpha diversity vector for
group differences (Kruskal-Wallis) across the full cross product of
{dataset x metric x case}, where the cases come from the -g YAML file
plus the implicit ALL case. Each work item subsets the sample metadata
and tests the vector against it.

The cross product is rendered through a bounded worker pool and merged
in work-item order, so the generated scripts are identical across runs
whatever the completion order.
	`,
}

var (
	opts        pipeline.Options
	metricsFlag pipeline.List
)

func init() {
	cmd.Run = runKruskal
	opts.Register(&cmd.Flag)
	cmd.Flag.Var(&metricsFlag, "metrics", "comma-separated alpha diversity metrics")

	command.Register(cmd)
}

func runKruskal(cmd *command.Command, args []string) error {
	run, err := opts.Setup()
	if err != nil {
		return err
	}
	collection, err := opts.Cases()
	if err != nil {
		return err
	}
	metrics := []string(metricsFlag)
	if len(metrics) == 0 {
		metrics = pipeline.AlphaMetrics
	}
	return generate(run, collection, metrics)
}
