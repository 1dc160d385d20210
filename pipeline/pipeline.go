// Package pipeline carries the options and state shared by every
// generation stage: the datasets folder, the discovered datasets, the
// scheduler dialect and the per-stage resource requests.
package pipeline

import (
	"flag"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/FranckLejzerowicz/routine-qiime2-analyses/cases"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/config"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/datasets"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/jobs"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/meta"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/paths"
)

// List is a comma-separated repeatable flag value.
type List []string

// String is the method to format the flag's value, part of the flag.Value interface.
func (l *List) String() string {
	return strings.Join(*l, ",")
}

// Set is the method to set the flag value, part of the flag.Value interface.
// It's a comma-separated list, so we split it.
func (l *List) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		if v != "" {
			*l = append(*l, v)
		}
	}
	return nil
}

// AlphaMetrics are the default alpha diversity metrics computed per
// dataset. faith_pd needs a phylogeny and is skipped without one.
var AlphaMetrics = []string{"observed_otus", "pielou_e", "shannon", "faith_pd"}

// BetaMetrics are the default beta diversity distance metrics.
var BetaMetrics = []string{"jaccard", "braycurtis", "aitchison"}

// Options are the flags every stage shares.
type Options struct {
	Folder    string
	Datasets  List
	Groups    string
	Project   string
	Env       string
	RunParams string
	Scheduler string
	Force     bool
}

// Register installs the shared flags on a command's flag set.
func (o *Options) Register(fs *flag.FlagSet) {
	fs.StringVar(&o.Folder, "i", "", "path to the folder containing the data/ and metadata/ subfolders")
	fs.Var(&o.Datasets, "d", "comma-separated dataset names (tab_<name>.tsv under data/)")
	fs.StringVar(&o.Groups, "g", "", "path to the case-groups YAML file")
	fs.StringVar(&o.Project, "p", "q2routine", "project nickname shown in the scheduler queue")
	fs.StringVar(&o.Env, "e", "qiime2-2019.10", "conda environment running the external toolchain")
	fs.StringVar(&o.RunParams, "run-params", "", "YAML overriding per-stage scheduler resources")
	fs.StringVar(&o.Scheduler, "scheduler", "PBS", "PBS|SLURM|NONE")
	fs.BoolVar(&o.Force, "force", false, "regenerate commands even when their output exists")
}

// Run is one validated generation pass.
type Run struct {
	Datasets  []datasets.Dataset
	Resolver  paths.Resolver
	Params    config.Params
	Scheduler jobs.Scheduler
	Project   string
	Env       string
}

// Setup validates the options into a Run: folder checks, dataset
// discovery, run params and scheduler parsing. Any failure here is
// fatal to the whole generation.
func (o *Options) Setup() (*Run, error) {
	if o.Folder == "" {
		return nil, errors.New("no datasets folder specified (-i)")
	}
	folder, err := filepath.Abs(o.Folder)
	if err != nil {
		return nil, errors.Wrap(err, "datasets folder")
	}
	if len(o.Datasets) == 0 {
		return nil, errors.New("no dataset names specified (-d)")
	}
	found, err := datasets.Discover(folder, o.Datasets)
	if err != nil {
		return nil, err
	}
	params, err := config.Load(o.RunParams)
	if err != nil {
		return nil, err
	}
	scheduler, err := jobs.ParseScheduler(o.Scheduler)
	if err != nil {
		return nil, err
	}
	return &Run{
		Datasets:  found,
		Resolver:  paths.Resolver{Folder: folder, Force: o.Force},
		Params:    params,
		Scheduler: scheduler,
		Project:   datasets.ProjectName(o.Project),
		Env:       o.Env,
	}, nil
}

// Cases loads the case-groups file named by the options. An empty path
// yields the collection holding only the implicit ALL group.
func (o *Options) Cases() (cases.Collection, error) {
	if o.Groups == "" {
		return cases.Parse(nil)
	}
	return cases.Load(o.Groups)
}

// CheckCases drops the case groups naming variables absent from the
// metadata, warning per dropped group. The ALL group always survives.
func CheckCases(collection cases.Collection, table meta.Table, dataset, analysis string) cases.Collection {
	checked := cases.Collection{}
	for _, group := range collection.Groups {
		if group.Variable != cases.AllGroup {
			if _, err := table.Column(group.Variable); err != nil {
				log.Warnf("[%s] %s: %s (case group dropped)", analysis, dataset, err)
				continue
			}
		}
		checked.Groups = append(checked.Groups, group)
	}
	return checked
}

// Job wraps one non-empty chunk for the run's scheduler and records it
// on the stage driver.
func (r *Run) Job(main *jobs.Main, chunk *jobs.Chunk, name, analysis string) error {
	written, err := chunk.Close()
	if err != nil {
		return err
	}
	if !written {
		log.Debugf("nothing written in %s", chunk.Path())
		return nil
	}
	wrapped, err := jobs.Wrap(r.Scheduler, jobs.Job{
		Name:   name,
		Env:    r.Env,
		Script: chunk.Path(),
		Res:    r.Params.For(analysis),
	})
	if err != nil {
		return err
	}
	main.Submit(wrapped)
	return nil
}
