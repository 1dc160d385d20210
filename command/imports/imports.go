package imports

import (
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/FranckLejzerowicz/routine-qiime2-analyses/jobs"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/qiime"
)

func generate(run *pipeline.Run) error {
	log.Info("# Import tables to qiime2")
	jobFolder, err := run.Resolver.JobFolder("import")
	if err != nil {
		return err
	}
	chunkFolder, err := run.Resolver.JobFolder("import/chunks")
	if err != nil {
		return err
	}

	main := jobs.NewMain(filepath.Join(jobFolder, "0_run_import.sh"), run.Scheduler)
	for _, dataset := range run.Datasets {
		chunk := jobs.NewChunk(filepath.Join(chunkFolder, fmt.Sprintf("run_import_%s.sh", dataset.Name)))
		qza := dataset.Qza()
		if run.Resolver.NeedsRun(qza) {
			for _, c := range qiime.Import(dataset.Table, qza, "FeatureTable[Frequency]") {
				chunk.Echo(c)
			}
		}
		name := fmt.Sprintf("%s.mprt.%s", run.Project, dataset.Name)
		if err := run.Job(main, chunk, name, "default"); err != nil {
			return err
		}
	}
	if written, err := main.Close(); err != nil {
		return err
	} else if written {
		jobs.ToRun(main.Path())
	}
	return nil
}
