package kruskal

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/exascience/pargo/parallel"
	log "github.com/sirupsen/logrus"

	"github.com/FranckLejzerowicz/routine-qiime2-analyses/cases"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/command/alpha"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/datasets"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/jobs"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/meta"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/paths"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/qiime"
)

// workItem is one (dataset, metric, case) unit of generation.
type workItem struct {
	dataset datasets.Dataset
	table   meta.Table
	div     string // alpha vector artefact
	metric  string
	spec    cases.Spec
	odir    string
}

// key orders work items deterministically before serialization.
func (w workItem) key() string {
	return fmt.Sprintf("%s\x00%s\x00%s", w.dataset.Name, w.metric, w.caseLabel())
}

// caseLabel prefixes the case label with the metric, so outputs of the
// same subset under different metrics never collide.
func (w workItem) caseLabel() string {
	return fmt.Sprintf("%s_%s", w.metric, w.spec.Label())
}

// render writes the work item's script fragment: subset metadata saved
// next to the output, then the group-significance test against it.
// Items whose output exists render to nothing.
func (w workItem) render(resolver paths.Resolver) (string, error) {
	label := w.caseLabel()
	rad := filepath.Join(w.odir, paths.StripExt(filepath.Base(w.div))+"_"+label)
	qzv := rad + "_kruskal-wallis.qzv"
	if !resolver.NeedsRun(qzv) {
		return "", nil
	}
	subset, err := w.table.Subset(label, w.spec.Variable, w.spec.Values)
	if err != nil {
		return "", err
	}
	newMeta := rad + ".meta"
	if err := subset.Write(newMeta); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	cmd := qiime.New("qiime", "diversity", "alpha-group-significance").
		Flag("--i-alpha-diversity", w.div).
		Flag("--m-metadata-file", newMeta).
		Flag("--o-visualization", qzv)
	fmt.Fprintf(&buf, "echo %q\n%s\n\n", cmd.String(), cmd.String())
	return buf.String(), nil
}

func generate(run *pipeline.Run, collection cases.Collection, metrics []string) error {
	log.Info("# Kruskal-Wallis on alpha diversity indices per case subset")
	jobFolder, err := run.Resolver.JobFolder("alpha_group_significance")
	if err != nil {
		return err
	}
	chunkFolder, err := run.Resolver.JobFolder("alpha_group_significance/chunks")
	if err != nil {
		return err
	}

	main := jobs.NewMain(filepath.Join(jobFolder, "6_run_alpha_group_significance.sh"), run.Scheduler)
	for _, dataset := range run.Datasets {
		table, err := dataset.ReadMetadata()
		if err != nil {
			log.Warnf("[kruskal] %s: %s (dataset skipped)", dataset.Name, err)
			continue
		}
		checked := pipeline.CheckCases(collection, table, dataset.Name, "kruskal")
		odir, err := run.Resolver.AnalysisFolder(filepath.Join("alpha_group_significance", dataset.Name))
		if err != nil {
			return err
		}

		var items []workItem
		for _, metric := range metrics {
			div, err := alpha.VectorPath(run.Resolver, dataset, metric)
			if err != nil {
				return err
			}
			for _, spec := range checked.Specs() {
				items = append(items, workItem{
					dataset: dataset,
					table:   table,
					div:     div,
					metric:  metric,
					spec:    spec,
					odir:    odir,
				})
			}
		}
		sort.Slice(items, func(i, j int) bool { return items[i].key() < items[j].key() })

		fragments := make([]string, len(items))
		errs := make([]error, len(items))
		parallel.Range(0, len(items), 0, func(low, high int) {
			for i := low; i < high; i++ {
				fragments[i], errs[i] = items[i].render(run.Resolver)
			}
		})
		for _, err := range errs {
			if err != nil {
				return err
			}
		}

		chunk := jobs.NewChunk(filepath.Join(chunkFolder,
			fmt.Sprintf("run_alpha_group_significance_%s.sh", dataset.Name)))
		for _, fragment := range fragments {
			chunk.Fragment(fragment)
		}
		name := fmt.Sprintf("%s.kw.%s", run.Project, dataset.Name)
		if err := run.Job(main, chunk, name, "alpha_kw"); err != nil {
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
