package alpha

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

func TestVectorPath(t *testing.T) {
	run := testRun(t)
	path, err := VectorPath(run.Resolver, run.Datasets[0], "shannon")
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(run.Resolver.Folder, "qiime", "alpha", "gut", "tab_gut_shannon.qza")
	if path != want {
		t.Fatalf("want:%s have:%s", want, path)
	}
}

func TestGenerateAlpha(t *testing.T) {
	run := testRun(t)
	diversities, err := generateAlpha(run, []string{"shannon", "faith_pd"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(diversities) != 1 {
		t.Fatalf("want:1 dataset have:%d", len(diversities))
	}
	// faith_pd needs a phylogeny and was skipped
	if len(diversities[0].Vectors) != 1 ||
		!strings.HasSuffix(diversities[0].Vectors[0], "tab_gut_shannon.qza") {
		t.Fatalf("unexpected vectors: %v", diversities[0].Vectors)
	}
	body, err := os.ReadFile(filepath.Join(run.Resolver.Folder, "jobs", "alpha", "chunks", "run_alpha_gut.sh"))
	if err != nil {
		t.Fatal(err)
	}
	script := string(body)
	if !strings.Contains(script, "qiime diversity alpha ") ||
		!strings.Contains(script, "--p-metric shannon") {
		t.Fatalf("missing alpha command:\n%s", script)
	}
	if strings.Contains(script, "faith_pd") {
		t.Fatalf("faith_pd generated without a tree:\n%s", script)
	}
}

func TestGenerateAlphaPhylogenetic(t *testing.T) {
	run := testRun(t)
	if _, err := generateAlpha(run, []string{"faith_pd"}, "/x/tree.qza"); err != nil {
		t.Fatal(err)
	}
	body, err := os.ReadFile(filepath.Join(run.Resolver.Folder, "jobs", "alpha", "chunks", "run_alpha_gut.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "alpha-phylogenetic") ||
		!strings.Contains(string(body), "--i-phylogeny /x/tree.qza") {
		t.Fatalf("missing phylogenetic command:\n%s", body)
	}
}

func TestGenerateAlphaSkipsExistingVector(t *testing.T) {
	run := testRun(t)
	out, err := VectorPath(run.Resolver, run.Datasets[0], "shannon")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(out, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := generateAlpha(run, []string{"shannon"}, ""); err != nil {
		t.Fatal(err)
	}
	chunk := filepath.Join(run.Resolver.Folder, "jobs", "alpha", "chunks", "run_alpha_gut.sh")
	if _, err := os.Stat(chunk); !os.IsNotExist(err) {
		t.Fatalf("chunk written although the vector exists: %v", err)
	}
}

func TestGenerateMerge(t *testing.T) {
	run := testRun(t)
	diversities, err := generateAlpha(run, []string{"shannon"}, "")
	if err != nil {
		t.Fatal(err)
	}
	merged, err := generateMerge(run, diversities)
	if err != nil {
		t.Fatal(err)
	}
	if len(merged) != 1 || !strings.HasSuffix(merged[0], "meta_gut_alphas.qzv") {
		t.Fatalf("unexpected merged outputs: %v", merged)
	}
	body, err := os.ReadFile(filepath.Join(run.Resolver.Folder, "jobs", "alpha", "chunks", "run_merge_alpha_gut.sh"))
	if err != nil {
		t.Fatal(err)
	}
	script := string(body)
	if !strings.Contains(script, "qiime metadata tabulate") ||
		!strings.Contains(script, "--m-input-file "+run.Datasets[0].Metadata) ||
		!strings.Contains(script, "tab_gut_shannon.qza") {
		t.Fatalf("missing tabulate command:\n%s", script)
	}
}
