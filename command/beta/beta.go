package beta

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/FranckLejzerowicz/routine-qiime2-analyses/datasets"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/jobs"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/paths"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/qiime"
)

// Matrices maps one dataset to its per-metric distance matrices.
type Matrices struct {
	Dataset  datasets.Dataset
	Metrics  []string
	Distance []string // parallel to Metrics
}

// MatrixPath derives the distance matrix artefact for one (dataset,
// metric); the permanova subcommand rebuilds the same paths.
func MatrixPath(r paths.Resolver, d datasets.Dataset, metric string) (string, error) {
	stem := filepath.Base(paths.StripExt(d.Table))
	return r.Output("beta", d.Name, stem, metric+"_DM", ".qza")
}

func generateBeta(run *pipeline.Run, metrics []string) ([]Matrices, error) {
	log.Info("# Calculate beta diversity distance matrices")
	jobFolder, err := run.Resolver.JobFolder("beta")
	if err != nil {
		return nil, err
	}
	chunkFolder, err := run.Resolver.JobFolder("beta/chunks")
	if err != nil {
		return nil, err
	}

	var all []Matrices
	main := jobs.NewMain(filepath.Join(jobFolder, "2_run_beta.sh"), run.Scheduler)
	for _, dataset := range run.Datasets {
		chunk := jobs.NewChunk(filepath.Join(chunkFolder, fmt.Sprintf("run_beta_%s.sh", dataset.Name)))
		matrices := Matrices{Dataset: dataset}
		for _, metric := range metrics {
			out, err := MatrixPath(run.Resolver, dataset, metric)
			if err != nil {
				return nil, err
			}
			matrices.Metrics = append(matrices.Metrics, metric)
			matrices.Distance = append(matrices.Distance, out)
			if !run.Resolver.NeedsRun(out) {
				continue
			}
			chunk.Echo(qiime.New("qiime", "diversity", "beta").
				Flag("--i-table", dataset.Qza()).
				Flag("--p-metric", metric).
				Flag("--p-n-jobs", run.Params.For("beta").Procs).
				Flag("--o-distance-matrix", out))
		}
		all = append(all, matrices)
		name := fmt.Sprintf("%s.bt.%s", run.Project, dataset.Name)
		if err := run.Job(main, chunk, name, "beta"); err != nil {
			return nil, err
		}
	}
	if written, err := main.Close(); err != nil {
		return nil, err
	} else if written {
		jobs.ToRun(main.Path())
	}
	return all, nil
}

func generateExport(run *pipeline.Run, all []Matrices) error {
	log.Info("# Export beta diversity distance matrices")
	jobFolder, err := run.Resolver.JobFolder("export_beta")
	if err != nil {
		return err
	}
	chunkFolder, err := run.Resolver.JobFolder("export_beta/chunks")
	if err != nil {
		return err
	}

	main := jobs.NewMain(filepath.Join(jobFolder, "2x_run_beta_export.sh"), run.Scheduler)
	for _, matrices := range all {
		chunk := jobs.NewChunk(filepath.Join(chunkFolder, fmt.Sprintf("run_beta_export_%s.sh", matrices.Dataset.Name)))
		for _, dm := range matrices.Distance {
			tsv := paths.StripExt(dm) + ".tsv"
			if !run.Resolver.NeedsRun(tsv) {
				continue
			}
			for _, cmd := range qiime.Export(dm, tsv, "DistanceMatrix") {
				chunk.Echo(cmd)
			}
		}
		name := fmt.Sprintf("%s.xprt.bt.%s", run.Project, matrices.Dataset.Name)
		if err := run.Job(main, chunk, name, "export_beta"); err != nil {
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

func generatePcoas(run *pipeline.Run, all []Matrices) ([]Matrices, error) {
	log.Info("# Calculate principal coordinates")
	jobFolder, err := run.Resolver.JobFolder("pcoa")
	if err != nil {
		return nil, err
	}
	chunkFolder, err := run.Resolver.JobFolder("pcoa/chunks")
	if err != nil {
		return nil, err
	}

	var ordinations []Matrices
	main := jobs.NewMain(filepath.Join(jobFolder, "3_run_pcoa.sh"), run.Scheduler)
	for _, matrices := range all {
		chunk := jobs.NewChunk(filepath.Join(chunkFolder, fmt.Sprintf("run_pcoa_%s.sh", matrices.Dataset.Name)))
		pcoas := Matrices{Dataset: matrices.Dataset, Metrics: matrices.Metrics}
		for i, dm := range matrices.Distance {
			out, err := run.Resolver.Output("pcoa", matrices.Dataset.Name,
				filepath.Base(paths.StripExt(matrices.Dataset.Table)), matrices.Metrics[i]+"_PCoA", ".qza")
			if err != nil {
				return nil, err
			}
			pcoas.Distance = append(pcoas.Distance, out)
			if !run.Resolver.NeedsRun(out) {
				continue
			}
			chunk.Echo(qiime.New("qiime", "diversity", "pcoa").
				Flag("--i-distance-matrix", dm).
				Flag("--o-pcoa", out))
		}
		ordinations = append(ordinations, pcoas)
		name := fmt.Sprintf("%s.pc.%s", run.Project, matrices.Dataset.Name)
		if err := run.Job(main, chunk, name, "pcoa"); err != nil {
			return nil, err
		}
	}
	if written, err := main.Close(); err != nil {
		return nil, err
	} else if written {
		jobs.ToRun(main.Path())
	}
	return ordinations, nil
}

func generateEmperor(run *pipeline.Run, ordinations []Matrices) error {
	log.Info("# Make emperor plots")
	jobFolder, err := run.Resolver.JobFolder("emperor")
	if err != nil {
		return err
	}
	chunkFolder, err := run.Resolver.JobFolder("emperor/chunks")
	if err != nil {
		return err
	}

	main := jobs.NewMain(filepath.Join(jobFolder, "4_run_emperor.sh"), run.Scheduler)
	for _, pcoas := range ordinations {
		chunk := jobs.NewChunk(filepath.Join(chunkFolder, fmt.Sprintf("run_emperor_%s.sh", pcoas.Dataset.Name)))
		for _, pcoa := range pcoas.Distance {
			out := strings.Replace(paths.StripExt(pcoa)+".qzv",
				string(filepath.Separator)+"pcoa"+string(filepath.Separator),
				string(filepath.Separator)+"emperor"+string(filepath.Separator), 1)
			if !run.Resolver.NeedsRun(out) {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return errors.Wrap(err, "emperor")
			}
			chunk.Echo(qiime.New("qiime", "emperor", "plot").
				Flag("--i-pcoa", pcoa).
				Flag("--m-metadata-file", pcoas.Dataset.Metadata).
				Flag("--o-visualization", out))
		}
		name := fmt.Sprintf("%s.mprr.%s", run.Project, pcoas.Dataset.Name)
		if err := run.Job(main, chunk, name, "emperor"); err != nil {
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
