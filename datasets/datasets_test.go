package datasets

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func layout(t *testing.T, files ...string) string {
	t.Helper()
	folder := t.TempDir()
	for _, f := range files {
		path := filepath.Join(folder, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return folder
}

func TestDiscover(t *testing.T) {
	folder := layout(t,
		"data/tab_gut.tsv",
		"metadata/meta_gut.tsv",
		"data/tab_skin.biom",
		"metadata/meta_skin.txt",
	)
	found, err := Discover(folder, []string{"gut", "skin"})
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 {
		t.Fatalf("want:2 have:%d", len(found))
	}
	if found[0].Name != "gut" || !strings.HasSuffix(found[0].Table, "tab_gut.tsv") {
		t.Fatalf("unexpected first dataset: %+v", found[0])
	}
	if !strings.HasSuffix(found[0].Metadata, filepath.Join("metadata", "meta_gut.tsv")) {
		t.Fatalf("unexpected metadata: %s", found[0].Metadata)
	}
	// biom table pairs with .txt metadata
	if !strings.HasSuffix(found[1].Table, "tab_skin.biom") ||
		!strings.HasSuffix(found[1].Metadata, "meta_skin.txt") {
		t.Fatalf("unexpected second dataset: %+v", found[1])
	}
}

func TestDiscoverPrefersTSV(t *testing.T) {
	folder := layout(t,
		"data/tab_gut.tsv",
		"data/tab_gut.biom",
		"metadata/meta_gut.tsv",
	)
	found, err := Discover(folder, []string{"gut"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(found[0].Table, ".tsv") {
		t.Fatalf("want the tsv table, have:%s", found[0].Table)
	}
}

func TestDiscoverSkipsMissingMetadata(t *testing.T) {
	folder := layout(t,
		"data/tab_gut.tsv",
		"metadata/meta_gut.tsv",
		"data/tab_skin.tsv",
	)
	found, err := Discover(folder, []string{"gut", "skin"})
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].Name != "gut" {
		t.Fatalf("want only gut, have:%+v", found)
	}
}

func TestDiscoverNoneFound(t *testing.T) {
	folder := layout(t, "metadata/meta_gut.tsv")
	_, err := Discover(folder, []string{"gut", "skin"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "tab_gut.tsv") || !strings.Contains(err.Error(), "tab_skin.tsv") {
		t.Fatalf("error must list every candidate: %v", err)
	}
}

func TestQza(t *testing.T) {
	tests := []struct {
		table string
		want  string
	}{
		{"/x/data/tab_gut.tsv", "/x/data/tab_gut.qza"},
		{"/x/data/tab_gut.biom", "/x/data/tab_gut.qza"},
	}
	for _, tt := range tests {
		d := Dataset{Table: tt.table}
		if have := d.Qza(); have != tt.want {
			t.Errorf("Qza(%s) want:%s have:%s", tt.table, tt.want, have)
		}
	}
}

func TestFeatureIDs(t *testing.T) {
	folder := layout(t, "metadata/meta_gut.tsv")
	table := filepath.Join(folder, "data", "tab_gut.tsv")
	if err := os.MkdirAll(filepath.Dir(table), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(table, []byte("#OTU ID\ts1\ts2\no1\t1\t2\no2\t3\t4\n"), 0644); err != nil {
		t.Fatal(err)
	}
	found, err := Discover(folder, []string{"gut"})
	if err != nil {
		t.Fatal(err)
	}
	ids, err := found[0].FeatureIDs()
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"o1", "o2"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("want:%v have:%v", want, ids)
	}
}

func TestFeatureIDsBiom(t *testing.T) {
	d := Dataset{Name: "gut", Table: "/x/data/tab_gut.biom"}
	if _, err := d.FeatureIDs(); err == nil {
		t.Fatal("expected an error for a biom table")
	}
}

func TestProjectName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"myproject", "mprjct"},
		{"ABRACADABRA", "BRCDBR"},
		{"aeiouy", "q2.routine"},
		{"", "q2.routine"},
	}
	for _, tt := range tests {
		if have := ProjectName(tt.name); have != tt.want {
			t.Errorf("ProjectName(%q) want:%q have:%q", tt.name, tt.want, have)
		}
	}
}
