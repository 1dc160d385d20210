package alpha

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

// Diversities maps each dataset to its per-metric alpha diversity
// artefacts, in metric order. The merge, export, correlation and
// kruskal stages all consume these paths.
type Diversities struct {
	Dataset datasets.Dataset
	Vectors []string
}

// VectorPath derives the alpha vector artefact for one (dataset,
// metric); the kruskal subcommand rebuilds the same paths without
// rerunning this stage.
func VectorPath(r paths.Resolver, d datasets.Dataset, metric string) (string, error) {
	stem := filepath.Base(paths.StripExt(d.Table))
	return r.Output("alpha", d.Name, stem, metric, ".qza")
}

func generateAlpha(run *pipeline.Run, metrics []string, tree string) ([]Diversities, error) {
	log.Info("# Calculate alpha diversity indices")
	jobFolder, err := run.Resolver.JobFolder("alpha")
	if err != nil {
		return nil, err
	}
	chunkFolder, err := run.Resolver.JobFolder("alpha/chunks")
	if err != nil {
		return nil, err
	}

	var diversities []Diversities
	main := jobs.NewMain(filepath.Join(jobFolder, "1_run_alpha.sh"), run.Scheduler)
	for _, dataset := range run.Datasets {
		chunk := jobs.NewChunk(filepath.Join(chunkFolder, fmt.Sprintf("run_alpha_%s.sh", dataset.Name)))
		divs := Diversities{Dataset: dataset}
		for _, metric := range metrics {
			out, err := VectorPath(run.Resolver, dataset, metric)
			if err != nil {
				return nil, err
			}
			if metric == "faith_pd" && tree == "" {
				log.Warnf("[alpha] %s: no phylogeny given, faith_pd skipped", dataset.Name)
				continue
			}
			divs.Vectors = append(divs.Vectors, out)
			if !run.Resolver.NeedsRun(out) {
				continue
			}
			if metric == "faith_pd" {
				chunk.Echo(qiime.New("qiime", "diversity", "alpha-phylogenetic").
					Flag("--i-table", dataset.Qza()).
					Flag("--i-phylogeny", tree).
					Flag("--p-metric", metric).
					Flag("--o-alpha-diversity", out))
			} else {
				chunk.Echo(qiime.New("qiime", "diversity", "alpha").
					Flag("--i-table", dataset.Qza()).
					Flag("--p-metric", metric).
					Flag("--o-alpha-diversity", out))
			}
		}
		diversities = append(diversities, divs)
		name := fmt.Sprintf("%s.lph.%s", run.Project, dataset.Name)
		if err := run.Job(main, chunk, name, "alpha"); err != nil {
			return nil, err
		}
	}
	if written, err := main.Close(); err != nil {
		return nil, err
	} else if written {
		jobs.ToRun(main.Path())
	}
	return diversities, nil
}

// mergedPath is the per-dataset merged alpha visualization, derived
// from the metadata location.
func mergedPath(d datasets.Dataset) string {
	return paths.StripExt(d.Metadata) + "_alphas.qzv"
}

func generateMerge(run *pipeline.Run, diversities []Diversities) ([]string, error) {
	log.Info("# Merge alpha diversity indices to metadata")
	jobFolder, err := run.Resolver.JobFolder("alpha")
	if err != nil {
		return nil, err
	}
	chunkFolder, err := run.Resolver.JobFolder("alpha/chunks")
	if err != nil {
		return nil, err
	}

	var merged []string
	main := jobs.NewMain(filepath.Join(jobFolder, "2_run_merge_alphas.sh"), run.Scheduler)
	for _, divs := range diversities {
		chunk := jobs.NewChunk(filepath.Join(chunkFolder, fmt.Sprintf("run_merge_alpha_%s.sh", divs.Dataset.Name)))
		out := mergedPath(divs.Dataset)
		merged = append(merged, out)
		if run.Resolver.NeedsRun(out) {
			cmd := qiime.New("qiime", "metadata", "tabulate").
				Flag("--o-visualization", out).
				Flag("--m-input-file", divs.Dataset.Metadata)
			for _, div := range divs.Vectors {
				cmd.Flag("--m-input-file", div)
			}
			chunk.Echo(cmd)
		}
		name := fmt.Sprintf("%s.mrg.lph.%s", run.Project, divs.Dataset.Name)
		if err := run.Job(main, chunk, name, "merge_alpha"); err != nil {
			return nil, err
		}
	}
	if written, err := main.Close(); err != nil {
		return nil, err
	} else if written {
		jobs.ToRun(main.Path())
	}
	return merged, nil
}

func generateExport(run *pipeline.Run, merged []string) error {
	log.Info("# Export alpha diversity indices to metadata")
	jobFolder, err := run.Resolver.JobFolder("alpha")
	if err != nil {
		return err
	}
	chunkFolder, err := run.Resolver.JobFolder("alpha/chunks")
	if err != nil {
		return err
	}

	main := jobs.NewMain(filepath.Join(jobFolder, "3_run_merge_alpha_export.sh"), run.Scheduler)
	chunk := jobs.NewChunk(filepath.Join(chunkFolder, "run_merge_alpha_export.sh"))
	for _, qzv := range merged {
		tsv := paths.StripExt(qzv) + ".tsv"
		if !run.Resolver.NeedsRun(tsv) {
			continue
		}
		unpack := paths.StripExt(qzv)
		chunk.Echo(qiime.New("qiime", "tools", "export").
			Flag("--input-path", qzv).
			Flag("--output-path", unpack))
		chunk.Line("mv %s/metadata.tsv %s", unpack, tsv)
		chunk.Line("rm -rf %s", unpack)
	}
	if err := run.Job(main, chunk, fmt.Sprintf("%s.xprt.lph", run.Project), "merge_alpha"); err != nil {
		return err
	}
	if written, err := main.Close(); err != nil {
		return err
	} else if written {
		jobs.ToRun(main.Path())
	}
	return nil
}

func generateCorrelations(run *pipeline.Run, diversities []Diversities) error {
	log.Info("# Correlate numeric metadata variables with alpha diversity indices")
	jobFolder, err := run.Resolver.JobFolder("alpha_correlations")
	if err != nil {
		return err
	}
	chunkFolder, err := run.Resolver.JobFolder("alpha_correlations/chunks")
	if err != nil {
		return err
	}

	main := jobs.NewMain(filepath.Join(jobFolder, "4_run_alpha_correlation.sh"), run.Scheduler)
	for _, divs := range diversities {
		chunk := jobs.NewChunk(filepath.Join(chunkFolder, fmt.Sprintf("run_alpha_correlation_%s.sh", divs.Dataset.Name)))
		for _, div := range divs.Vectors {
			out := strings.Replace(paths.StripExt(div)+".qzv",
				string(filepath.Separator)+"alpha"+string(filepath.Separator),
				string(filepath.Separator)+"alpha_correlations"+string(filepath.Separator), 1)
			if !run.Resolver.NeedsRun(out) {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return errors.Wrap(err, "alpha correlations")
			}
			chunk.Echo(qiime.New("qiime", "diversity", "alpha-correlation").
				Flag("--i-alpha-diversity", div).
				Flag("--p-method", "spearman").
				Flag("--m-metadata-file", divs.Dataset.Metadata).
				Flag("--o-visualization", out))
		}
		name := fmt.Sprintf("%s.lphcrr.%s", run.Project, divs.Dataset.Name)
		if err := run.Job(main, chunk, name, "alpha_correlations"); err != nil {
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

func generateVolatility(run *pipeline.Run, longiColumn string) error {
	log.Info("# Longitudinal change in alpha diversity indices")
	jobFolder, err := run.Resolver.JobFolder("longitudinal")
	if err != nil {
		return err
	}
	chunkFolder, err := run.Resolver.JobFolder("longitudinal/chunks")
	if err != nil {
		return err
	}

	main := jobs.NewMain(filepath.Join(jobFolder, "5_run_volatility.sh"), run.Scheduler)
	for _, dataset := range run.Datasets {
		table, err := dataset.ReadMetadata()
		if err != nil {
			return err
		}
		if _, err := table.Column(longiColumn); err != nil {
			log.Warnf("[volatility] %s: %s (dataset skipped)", dataset.Name, err)
			continue
		}
		metaAlphas := paths.StripExt(dataset.Metadata) + "_alphas.tsv"
		if !exists(metaAlphas) {
			log.Warnf("[volatility] %s: %s missing; run the alpha, merge and export stages first",
				dataset.Name, metaAlphas)
		}
		chunk := jobs.NewChunk(filepath.Join(chunkFolder, fmt.Sprintf("run_volatility_%s.sh", dataset.Name)))
		out, err := run.Resolver.Output("longitudinal", dataset.Name, dataset.Name, "volatility", ".qzv")
		if err != nil {
			return err
		}
		if run.Resolver.NeedsRun(out) {
			chunk.Echo(qiime.New("qiime", "longitudinal", "volatility").
				Flag("--m-metadata-file", metaAlphas).
				Flag("--p-state-column", qiime.Quote(longiColumn)).
				Flag("--p-individual-id-column", qiime.Quote("host_subject_id")).
				Flag("--o-visualization", out))
		}
		name := fmt.Sprintf("%s.vltlt.%s", run.Project, dataset.Name)
		if err := run.Job(main, chunk, name, "volatility"); err != nil {
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

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
