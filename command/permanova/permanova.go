package permanova

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/FranckLejzerowicz/routine-qiime2-analyses/cases"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/command/beta"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/jobs"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/meta"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/paths"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/qiime"
)

// testingGroups merges the -t columns with every case variable, except
// the ALL placeholder, deduplicated and sorted for stable output.
func testingGroups(flagged []string, collection cases.Collection) []string {
	seen := make(map[string]struct{})
	var groups []string
	for _, g := range flagged {
		if _, ok := seen[g]; !ok {
			seen[g] = struct{}{}
			groups = append(groups, g)
		}
	}
	for _, group := range collection.Groups {
		if group.Variable == cases.AllGroup {
			continue
		}
		if _, ok := seen[group.Variable]; !ok {
			seen[group.Variable] = struct{}{}
			groups = append(groups, group.Variable)
		}
	}
	sort.Strings(groups)
	return groups
}

func generate(run *pipeline.Run, collection cases.Collection, metrics, flaggedGroups []string) error {
	log.Info("# PERMANOVA on beta diversity distance matrices per case subset")
	jobFolder, err := run.Resolver.JobFolder("permanova")
	if err != nil {
		return err
	}
	chunkFolder, err := run.Resolver.JobFolder("permanova/chunks")
	if err != nil {
		return err
	}

	main := jobs.NewMain(filepath.Join(jobFolder, "3_run_beta_group_significance.sh"), run.Scheduler)
	for _, dataset := range run.Datasets {
		table, err := dataset.ReadMetadata()
		if err != nil {
			log.Warnf("[permanova] %s: %s (dataset skipped)", dataset.Name, err)
			continue
		}
		checked := pipeline.CheckCases(collection, table, dataset.Name, "permanova")
		groups := checkGroups(testingGroups(flaggedGroups, checked), table, dataset.Name)
		odir, err := run.Resolver.AnalysisFolder(filepath.Join("permanova", dataset.Name))
		if err != nil {
			return err
		}

		for _, metric := range metrics {
			dm, err := beta.MatrixPath(run.Resolver, dataset, metric)
			if err != nil {
				return err
			}
			chunk := jobs.NewChunk(filepath.Join(chunkFolder,
				fmt.Sprintf("run_beta_group_significance_%s_%s.sh", dataset.Name, metric)))
			for _, spec := range checked.Specs() {
				caseLabel := fmt.Sprintf("%s_%s", metric, spec.Label())
				subset, err := table.Subset(spec.Label(), spec.Variable, spec.Values)
				if err != nil {
					return err
				}
				for _, group := range groups {
					if err := renderTest(run, chunk, odir, dataset.Table, dm,
						subset, caseLabel, group); err != nil {
						return err
					}
				}
			}
			name := fmt.Sprintf("%s.prm.%s.%s", run.Project, dataset.Name, metric)
			if err := run.Job(main, chunk, name, "permanova"); err != nil {
				return err
			}
		}
	}
	if written, err := main.Close(); err != nil {
		return err
	} else if written {
		jobs.ToRun(main.Path())
	}
	return nil
}

// checkGroups drops the testing groups absent from the metadata.
func checkGroups(groups []string, table meta.Table, dataset string) []string {
	var kept []string
	for _, group := range groups {
		if _, err := table.Column(group); err != nil {
			log.Warnf("[permanova] %s: %s (testing group dropped)", dataset, err)
			continue
		}
		kept = append(kept, group)
	}
	return kept
}

// renderTest writes one {case x testing-group} test: the subset
// metadata saved next to the outputs, the distance matrix filtered to
// it, and the pairwise group-significance test.
func renderTest(run *pipeline.Run, chunk *jobs.Chunk, odir, tsv, dm string,
	subset meta.Table, caseLabel, group string) error {
	label := strings.ReplaceAll(fmt.Sprintf("%s__%s", caseLabel, group), " ", "_")
	rad := filepath.Join(odir, paths.StripExt(filepath.Base(tsv))+"_"+label)
	qzv := rad + "_permanova.qzv"
	if !run.Resolver.NeedsRun(qzv) {
		return nil
	}
	uniques, err := subset.Uniques(group)
	if err != nil {
		return err
	}
	if len(uniques) < 2 {
		log.Debugf("[permanova] %s: single %q value in subset, test skipped", label, group)
		return nil
	}
	newMeta := rad + ".meta"
	if err := subset.Write(newMeta); err != nil {
		return err
	}
	newDM := rad + "_DM.qza"
	chunk.Echo(qiime.New("qiime", "diversity", "filter-distance-matrix").
		Flag("--i-distance-matrix", dm).
		Flag("--m-metadata-file", newMeta).
		Flag("--o-filtered-distance-matrix", newDM))
	chunk.Echo(qiime.New("qiime", "diversity", "beta-group-significance").
		Flag("--i-distance-matrix", newDM).
		Flag("--m-metadata-file", newMeta).
		Flag("--m-metadata-column", qiime.Quote(group)).
		Flag("--p-pairwise", "").
		Flag("--o-visualization", qzv))
	return nil
}
