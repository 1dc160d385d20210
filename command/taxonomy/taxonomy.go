package taxonomy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/FranckLejzerowicz/routine-qiime2-analyses/datasets"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/jobs"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/paths"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/qiime"
)

// Assignments maps each dataset to its taxonomy artefact and the
// method that produced it; the barplot stage consumes these paths.
type Assignments struct {
	Dataset datasets.Dataset
	Method  string
	Qza     string
}

// assignmentPath derives the taxonomy artefact for one dataset. The
// method suffix keeps classifier-based and feature-name assignments
// apart.
func assignmentPath(r paths.Resolver, d datasets.Dataset, method string) (string, error) {
	stem := fmt.Sprintf("tax_%s", d.Name)
	caseLabel := ""
	if method == "sklearn" {
		caseLabel = method
	}
	return r.Output("taxonomy", d.Name, stem, caseLabel, ".qza")
}

func generateTaxonomy(run *pipeline.Run, classifier string) ([]Assignments, error) {
	log.Info("# Classify features by taxon")
	jobFolder, err := run.Resolver.JobFolder("taxonomy")
	if err != nil {
		return nil, err
	}
	chunkFolder, err := run.Resolver.JobFolder("taxonomy/chunks")
	if err != nil {
		return nil, err
	}

	var assignments []Assignments
	main := jobs.NewMain(filepath.Join(jobFolder, "1_run_taxonomy.sh"), run.Scheduler)
	for _, dataset := range run.Datasets {
		chunk := jobs.NewChunk(filepath.Join(chunkFolder, fmt.Sprintf("run_taxonomy_%s.sh", dataset.Name)))
		var assigned Assignments
		if classifier != "" {
			assigned, err = renderClassified(run, chunk, dataset, classifier)
		} else {
			assigned, err = renderFeatureNames(run, chunk, dataset)
		}
		if err != nil {
			log.Warnf("[taxonomy] %s: %s (dataset skipped)", dataset.Name, err)
			continue
		}
		assignments = append(assignments, assigned)
		name := fmt.Sprintf("%s.tx.%s", run.Project, dataset.Name)
		if err := run.Job(main, chunk, name, "taxonomy"); err != nil {
			return nil, err
		}
	}
	if written, err := main.Close(); err != nil {
		return nil, err
	} else if written {
		jobs.ToRun(main.Path())
	}
	return assignments, nil
}

// renderClassified assigns taxa with a fitted classifier: the feature
// sequences are written as fasta at generation time (feature names are
// the sequences), imported, classified and exported.
func renderClassified(run *pipeline.Run, chunk *jobs.Chunk,
	dataset datasets.Dataset, classifier string) (Assignments, error) {
	out, err := assignmentPath(run.Resolver, dataset, "sklearn")
	if err != nil {
		return Assignments{}, err
	}
	assigned := Assignments{Dataset: dataset, Method: "sklearn", Qza: out}
	if !run.Resolver.NeedsRun(out) {
		return assigned, nil
	}

	seqsDir, err := run.Resolver.AnalysisFolder(filepath.Join("seqs", dataset.Name))
	if err != nil {
		return Assignments{}, err
	}
	fasta := filepath.Join(seqsDir, fmt.Sprintf("seq_%s.fasta", dataset.Name))
	seqsQza := paths.StripExt(fasta) + ".qza"
	if run.Resolver.NeedsRun(seqsQza) {
		if err := writeSeqsFasta(fasta, dataset); err != nil {
			return Assignments{}, err
		}
		for _, cmd := range qiime.Import(fasta, seqsQza, "FeatureData[Sequence]") {
			chunk.Echo(cmd)
		}
	}
	chunk.Echo(qiime.New("qiime", "feature-classifier", "classify-sklearn").
		Flag("--i-reads", seqsQza).
		Flag("--i-classifier", classifier).
		Flag("--p-n-jobs", run.Params.For("taxonomy").Procs).
		Flag("--o-classification", out))
	for _, cmd := range qiime.Export(out, paths.StripExt(out)+".tsv", "FeatureData[Taxonomy]") {
		chunk.Echo(cmd)
	}
	return assigned, nil
}

// renderFeatureNames assigns each feature its own name as taxon, for
// tables whose feature names already carry a lineage. The mapping is
// written at generation time; only the import runs on the cluster.
func renderFeatureNames(run *pipeline.Run, chunk *jobs.Chunk,
	dataset datasets.Dataset) (Assignments, error) {
	out, err := assignmentPath(run.Resolver, dataset, "feat")
	if err != nil {
		return Assignments{}, err
	}
	assigned := Assignments{Dataset: dataset, Method: "feat", Qza: out}
	if !run.Resolver.NeedsRun(out) {
		return assigned, nil
	}

	ids, err := dataset.FeatureIDs()
	if err != nil {
		return Assignments{}, err
	}
	tsv := paths.StripExt(out) + ".tsv"
	f, err := os.Create(tsv)
	if err != nil {
		return Assignments{}, errors.Wrap(err, "taxonomy mapping")
	}
	fmt.Fprintln(f, "Feature ID\tTaxon")
	for _, id := range ids {
		fmt.Fprintf(f, "%s\t%s\n", id, id)
	}
	if err := f.Close(); err != nil {
		return Assignments{}, errors.Wrap(err, "taxonomy mapping")
	}
	chunk.Echo(qiime.New("qiime", "tools", "import").
		Flag("--input-path", tsv).
		Flag("--output-path", out).
		Flag("--type", qiime.Quote("FeatureData[Taxonomy]")))
	return assigned, nil
}

// writeSeqsFasta writes the features as fasta, each name doubling as
// its sequence.
func writeSeqsFasta(path string, dataset datasets.Dataset) error {
	ids, err := dataset.FeatureIDs()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "sequences fasta")
	}
	for _, id := range ids {
		fmt.Fprintf(f, ">%s\n%s\n", id, id)
	}
	return errors.Wrap(f.Close(), "sequences fasta")
}

func generateBarplot(run *pipeline.Run, assignments []Assignments) error {
	log.Info("# Make sample compositions barplots")
	jobFolder, err := run.Resolver.JobFolder("barplot")
	if err != nil {
		return err
	}
	chunkFolder, err := run.Resolver.JobFolder("barplot/chunks")
	if err != nil {
		return err
	}

	main := jobs.NewMain(filepath.Join(jobFolder, "1_run_barplot.sh"), run.Scheduler)
	for _, assigned := range assignments {
		chunk := jobs.NewChunk(filepath.Join(chunkFolder, fmt.Sprintf("run_barplot_%s.sh", assigned.Dataset.Name)))
		out, err := run.Resolver.Output("barplot", assigned.Dataset.Name,
			fmt.Sprintf("bar_%s", assigned.Dataset.Name), assigned.Method, ".qzv")
		if err != nil {
			return err
		}
		if run.Resolver.NeedsRun(out) {
			chunk.Echo(qiime.New("qiime", "taxa", "barplot").
				Flag("--i-table", assigned.Dataset.Qza()).
				Flag("--i-taxonomy", assigned.Qza).
				Flag("--m-metadata-file", assigned.Dataset.Metadata).
				Flag("--o-visualization", out))
		}
		name := fmt.Sprintf("%s.brplt.%s", run.Project, assigned.Dataset.Name)
		if err := run.Job(main, chunk, name, "barplot"); err != nil {
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
