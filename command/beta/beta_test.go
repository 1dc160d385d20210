package beta

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FranckLejzerowicz/routine-qiime2-analyses/config"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/datasets"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/jobs"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/paths"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/pipeline"
)

func testRun(t *testing.T) *pipeline.Run {
	t.Helper()
	folder := t.TempDir()
	for path, content := range map[string]string{
		"data/tab_gut.tsv":      "#OTU ID\ts1\ts2\no1\t1\t2\n",
		"metadata/meta_gut.tsv": "sample_name\tsite\ns1\tA\ns2\tB\n",
	} {
		full := filepath.Join(folder, path)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	found, err := datasets.Discover(folder, []string{"gut"})
	if err != nil {
		t.Fatal(err)
	}
	params, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	return &pipeline.Run{
		Datasets:  found,
		Resolver:  paths.Resolver{Folder: folder},
		Params:    params,
		Scheduler: jobs.None,
		Project:   "tst",
		Env:       "qiime2-2020.2",
	}
}

func TestMatrixPath(t *testing.T) {
	run := testRun(t)
	path, err := MatrixPath(run.Resolver, run.Datasets[0], "jaccard")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(run.Resolver.Folder, "qiime", "beta", "gut", "tab_gut_jaccard_DM.qza")
	if path != want {
		t.Fatalf("want:%s have:%s", want, path)
	}
}

func TestGenerateBeta(t *testing.T) {
	run := testRun(t)
	matrices, err := generateBeta(run, []string{"jaccard", "braycurtis"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matrices) != 1 || len(matrices[0].Distance) != 2 {
		t.Fatalf("unexpected matrices: %+v", matrices)
	}
	body, err := os.ReadFile(filepath.Join(run.Resolver.Folder, "jobs", "beta", "chunks", "run_beta_gut.sh"))
	if err != nil {
		t.Fatal(err)
	}
	script := string(body)
	for _, want := range []string{
		"qiime diversity beta",
		"--p-metric jaccard",
		"--p-metric braycurtis",
		"--p-n-jobs " + run.Params.For("beta").Procs,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("chunk missing %q:\n%s", want, script)
		}
	}
}

func TestGenerateBetaSkipsExistingMatrix(t *testing.T) {
	run := testRun(t)
	dm, err := MatrixPath(run.Resolver, run.Datasets[0], "jaccard")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dm, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	matrices, err := generateBeta(run, []string{"jaccard"})
	if err != nil {
		t.Fatal(err)
	}
	// the path is still reported for downstream stages
	if len(matrices[0].Distance) != 1 {
		t.Fatalf("unexpected matrices: %+v", matrices)
	}
	chunk := filepath.Join(run.Resolver.Folder, "jobs", "beta", "chunks", "run_beta_gut.sh")
	if _, err := os.Stat(chunk); !os.IsNotExist(err) {
		t.Fatalf("chunk written although the matrix exists: %v", err)
	}
}

func TestGeneratePcoasAndEmperor(t *testing.T) {
	run := testRun(t)
	matrices, err := generateBeta(run, []string{"jaccard"})
	if err != nil {
		t.Fatal(err)
	}
	pcoas, err := generatePcoas(run, matrices)
	if err != nil {
		t.Fatal(err)
	}
	if len(pcoas) != 1 || len(pcoas[0].Distance) != 1 ||
		!strings.HasSuffix(pcoas[0].Distance[0], filepath.Join("pcoa", "gut", "tab_gut_jaccard_PCoA.qza")) {
		t.Fatalf("unexpected ordinations: %+v", pcoas)
	}
	if err := generateEmperor(run, pcoas); err != nil {
		t.Fatal(err)
	}
	body, err := os.ReadFile(filepath.Join(run.Resolver.Folder, "jobs", "emperor", "chunks", "run_emperor_gut.sh"))
	if err != nil {
		t.Fatal(err)
	}
	script := string(body)
	if !strings.Contains(script, "qiime emperor plot") ||
		!strings.Contains(script, filepath.Join("emperor", "gut", "tab_gut_jaccard_PCoA.qzv")) {
		t.Fatalf("missing emperor command:\n%s", script)
	}
}
