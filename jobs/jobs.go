// Package jobs writes the generated shell scripts: per-work-item chunk
// scripts, the cluster job-submission wrapper around each chunk, and
// the per-stage driver script enumerating the submissions.
package jobs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/FranckLejzerowicz/routine-qiime2-analyses/config"
)

// Scheduler selects the job-submission dialect.
type Scheduler string

const (
	PBS   Scheduler = "PBS"
	Slurm Scheduler = "SLURM"
	None  Scheduler = "NONE"
)

// ParseScheduler validates a -scheduler flag value.
func ParseScheduler(value string) (Scheduler, error) {
	switch s := Scheduler(strings.ToUpper(value)); s {
	case PBS, Slurm, None:
		return s, nil
	}
	return "", errors.Errorf("unsupported scheduler %q (want PBS, SLURM or NONE)", value)
}

// Submit is the scheduler's submission program.
func (s Scheduler) Submit() string {
	switch s {
	case PBS:
		return "qsub"
	case Slurm:
		return "sbatch"
	}
	return "sh"
}

// Ext is the wrapper file extension for the scheduler.
func (s Scheduler) Ext() string {
	switch s {
	case PBS:
		return ".pbs"
	case Slurm:
		return ".slurm"
	}
	return ".sh"
}

// Chunk accumulates the commands of one work item's script. The file
// is only created on Close and only when at least one command was
// written, so untouched outputs leave no empty scripts behind.
type Chunk struct {
	path string
	buf  bytes.Buffer
	n    int
}

// NewChunk starts a chunk script at path.
func NewChunk(path string) *Chunk {
	return &Chunk{path: strings.ReplaceAll(path, " ", "-")}
}

// Path returns the script location.
func (c *Chunk) Path() string { return c.path }

// Count returns the number of commands written so far.
func (c *Chunk) Count() int { return c.n }

// Echo writes a command preceded by an echo of itself, the convention
// that makes the generated scripts self-narrating when run.
func (c *Chunk) Echo(cmd fmt.Stringer) {
	line := cmd.String()
	fmt.Fprintf(&c.buf, "echo %q\n", line)
	fmt.Fprintf(&c.buf, "%s\n\n", line)
	c.n++
}

// Line writes one raw script line without echoing.
func (c *Chunk) Line(format string, args ...interface{}) {
	fmt.Fprintf(&c.buf, format+"\n", args...)
	c.n++
}

// Fragment appends a pre-rendered script fragment. Empty fragments
// are ignored so skipped work items leave no trace.
func (c *Chunk) Fragment(s string) {
	if s == "" {
		return
	}
	c.buf.WriteString(s)
	c.n++
}

// Close writes the chunk to disk when any command was recorded and
// reports whether it did.
func (c *Chunk) Close() (bool, error) {
	if c.n == 0 {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return false, errors.Wrap(err, "chunk script")
	}
	if err := os.WriteFile(c.path, c.buf.Bytes(), 0755); err != nil {
		return false, errors.Wrap(err, "chunk script")
	}
	return true, nil
}

// Job is one chunk script wrapped for cluster submission.
type Job struct {
	Name   string // queue display name
	Env    string // conda environment to activate
	Script string // wrapped chunk script
	Res    config.Resources
}

const pbsTemplate = `#!/bin/bash
#PBS -V
#PBS -N {{.Name}}
#PBS -l nodes={{.Res.Nodes}}:ppn={{.Res.Procs}},mem={{.Res.Mem}}{{.Res.MemDim}},walltime={{.Res.Time}}:00:00
#PBS -o {{.Script}}.o
#PBS -e {{.Script}}.e
set -euo pipefail

cd ${PBS_O_WORKDIR}

source activate {{.Env}}
sh {{.Script}}
`

const slurmTemplate = `#!/bin/bash
#SBATCH --job-name={{.Name}}
#SBATCH --nodes={{.Res.Nodes}}
#SBATCH --ntasks-per-node={{.Res.Procs}}
#SBATCH --mem={{.Res.Mem}}{{.Res.MemDim}}
#SBATCH --time={{.Res.Time}}:00:00
#SBATCH --output={{.Script}}.o
#SBATCH --error={{.Script}}.e
set -euo pipefail

cd ${SLURM_SUBMIT_DIR}

source activate {{.Env}}
sh {{.Script}}
`

var (
	pbsTmpl   = template.Must(template.New("pbs").Parse(pbsTemplate))
	slurmTmpl = template.Must(template.New("slurm").Parse(slurmTemplate))
)

// Wrap writes the submission wrapper next to the chunk script and
// returns its path. With scheduler NONE the chunk itself is the
// submittable script.
func Wrap(scheduler Scheduler, job Job) (string, error) {
	if scheduler == None {
		return job.Script, nil
	}
	tmpl := pbsTmpl
	if scheduler == Slurm {
		tmpl = slurmTmpl
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, job); err != nil {
		return "", errors.Wrap(err, "job wrapper")
	}
	path := strings.TrimSuffix(job.Script, filepath.Ext(job.Script)) + scheduler.Ext()
	if err := os.WriteFile(path, buf.Bytes(), 0755); err != nil {
		return "", errors.Wrap(err, "job wrapper")
	}
	return path, nil
}

// Main accumulates the driver script of one stage: one submission line
// per non-empty chunk.
type Main struct {
	path      string
	scheduler Scheduler
	buf       bytes.Buffer
	n         int
}

// NewMain starts a driver script at path.
func NewMain(path string, scheduler Scheduler) *Main {
	return &Main{path: path, scheduler: scheduler}
}

// Path returns the driver location.
func (m *Main) Path() string { return m.path }

// Submit records one wrapped chunk for submission.
func (m *Main) Submit(wrapped string) {
	fmt.Fprintf(&m.buf, "%s %s\n", m.scheduler.Submit(), wrapped)
	m.n++
}

// Close writes the driver when any submission was recorded and reports
// whether it did.
func (m *Main) Close() (bool, error) {
	if m.n == 0 {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return false, errors.Wrap(err, "main script")
	}
	if err := os.WriteFile(m.path, m.buf.Bytes(), 0755); err != nil {
		return false, errors.Wrap(err, "main script")
	}
	return true, nil
}

// ToRun prints the closing "[TO RUN]" message pointing at a driver
// script the user should launch.
func ToRun(path string) {
	fmt.Printf("%s sh %s\n", color.GreenString("[TO RUN]"), path)
}
