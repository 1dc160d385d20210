package permanova

import (
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/command"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
)

var cmd = &command.Command{
	UsageLine: "permanova -i [datasets_folder] -d [dataset[,dataset,...]] -t [group[,group,...]] -g [groups.yml]",
	Short:     "beta group significance over every case subset",
	Long: `
Permanova writes the scripts testing each beta diversity distance
matrix for group differences across the cross product of {dataset x
metric x case x testing-group}. The cases come from the -g YAML file
plus the implicit ALL case; the testing groups from -t plus every case
variable. A testing group with fewer than two values inside a subset
is skipped for that subset.

Outputs that already exist are skipped unless -force is set.
	`,
}

var (
	opts        pipeline.Options
	metricsFlag pipeline.List
	groupsFlag  pipeline.List
)

func init() {
	cmd.Run = runPermanova
	opts.Register(&cmd.Flag)
	cmd.Flag.Var(&metricsFlag, "metrics", "comma-separated beta diversity metrics")
	cmd.Flag.Var(&groupsFlag, "t", "comma-separated metadata columns to test between")

	command.Register(cmd)
}

func runPermanova(cmd *command.Command, args []string) error {
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
		metrics = pipeline.BetaMetrics
	}
	return generate(run, collection, metrics, groupsFlag)
}
