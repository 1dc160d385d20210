package doc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/FranckLejzerowicz/routine-qiime2-analyses/cases"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/jobs"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/meta"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/qiime"
)

const docRTemplate = `#!/usr/bin/env Rscript
library(DOC)

otu <- read.table("{{.Table}}", header = TRUE, sep = "\t",
                  row.names = 1, comment.char = "", check.names = FALSE)
res <- DOC(otu, R = {{.Bootstraps}}, cores = {{.Cores}})
for (name in names(res)) {
    write.table(res[[name]], file.path("{{.Dir}}", paste0(name, ".tsv")),
                sep = "\t", quote = FALSE)
}
`

var docTmpl = template.Must(template.New("doc").Parse(docRTemplate))

type docScript struct {
	Table      string
	Dir        string
	Bootstraps int
	Cores      string
}

func generate(run *pipeline.Run, collection cases.Collection) error {
	log.Info("# Dissimilarity-overlap curves per case subset")
	jobFolder, err := run.Resolver.JobFolder("doc")
	if err != nil {
		return err
	}
	chunkFolder, err := run.Resolver.JobFolder("doc/chunks")
	if err != nil {
		return err
	}

	main := jobs.NewMain(filepath.Join(jobFolder, "3_run_doc.sh"), run.Scheduler)
	for _, dataset := range run.Datasets {
		table, err := dataset.ReadMetadata()
		if err != nil {
			log.Warnf("[doc] %s: %s (dataset skipped)", dataset.Name, err)
			continue
		}
		checked := pipeline.CheckCases(collection, table, dataset.Name, "doc")
		odir, err := run.Resolver.AnalysisFolder(filepath.Join("doc", dataset.Name))
		if err != nil {
			return err
		}

		chunk := jobs.NewChunk(filepath.Join(chunkFolder, fmt.Sprintf("run_doc_%s.sh", dataset.Name)))
		for _, spec := range checked.Specs() {
			if err := renderCase(run, chunk, odir, dataset.Qza(), table, spec); err != nil {
				return err
			}
		}
		name := fmt.Sprintf("%s.dc.%s", run.Project, dataset.Name)
		if err := run.Job(main, chunk, name, "doc"); err != nil {
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

// renderCase writes one case directory: the subset metadata and the R
// driver at generation time, the table filtering, export and R
// invocation as script commands. DO.tsv is the done marker.
func renderCase(run *pipeline.Run, chunk *jobs.Chunk, odir, qza string,
	table meta.Table, spec cases.Spec) error {
	label := spec.Label()
	dir := filepath.Join(odir, strings.Trim(label, "_"))
	if !run.Resolver.NeedsRun(filepath.Join(dir, "DO.tsv")) {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "doc case")
	}
	subset, err := table.Subset(label, spec.Variable, spec.Values)
	if err != nil {
		return err
	}
	newMeta := filepath.Join(dir, "meta.tsv")
	if err := subset.Write(newMeta); err != nil {
		return err
	}

	rPath := filepath.Join(dir, "DOC.R")
	newQza := filepath.Join(dir, "tab.qza")
	newTsv := filepath.Join(dir, "tab.tsv")
	var buf bytes.Buffer
	if err := docTmpl.Execute(&buf, docScript{
		Table:      newTsv,
		Dir:        dir,
		Bootstraps: 100,
		Cores:      run.Params.For("doc").Procs,
	}); err != nil {
		return errors.Wrap(err, "doc script")
	}
	if err := os.WriteFile(rPath, buf.Bytes(), 0755); err != nil {
		return errors.Wrap(err, "doc script")
	}

	chunk.Echo(qiime.New("qiime", "feature-table", "filter-samples").
		Flag("--i-table", qza).
		Flag("--m-metadata-file", newMeta).
		Flag("--o-filtered-table", newQza))
	for _, cmd := range qiime.Export(newQza, newTsv, "FeatureTable[Frequency]") {
		chunk.Echo(cmd)
	}
	chunk.Echo(qiime.New("Rscript").Arg(rPath))
	return nil
}
