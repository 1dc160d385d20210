// Package datasets discovers feature tables and their sibling metadata
// in a datasets folder laid out by naming convention:
//
//	<folder>/data/tab_<name>.tsv (or .biom)
//	<folder>/metadata/meta_<name>.tsv (or .txt)
package datasets

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/FranckLejzerowicz/routine-qiime2-analyses/meta"
)

// Dataset is one discovered feature table with its metadata.
type Dataset struct {
	Name     string
	Table    string // tab_<name>.tsv or .biom
	Metadata string // meta_<name>.tsv or .txt
}

// Qza returns the QIIME2 artefact path the table imports to.
func (d Dataset) Qza() string {
	return strings.TrimSuffix(d.Table, filepath.Ext(d.Table)) + ".qza"
}

// ReadMetadata loads the dataset's metadata table.
func (d Dataset) ReadMetadata() (meta.Table, error) {
	return meta.Read(d.Metadata)
}

// Discover locates the named datasets under folder. A dataset whose
// metadata is missing is skipped with a warning; no dataset found at
// all is an error listing every candidate tried.
func Discover(folder string, names []string) ([]Dataset, error) {
	var tried []string
	var found []Dataset
	for _, name := range names {
		tsv := filepath.Join(folder, "data", fmt.Sprintf("tab_%s.tsv", name))
		biom := strings.TrimSuffix(tsv, ".tsv") + ".biom"
		tried = append(tried, tsv)

		var table string
		switch {
		case exists(tsv):
			table = tsv
		case exists(biom):
			table = biom
		default:
			continue
		}

		metadata, err := correspondingMeta(table)
		if err != nil {
			log.Warnf("%s: %s (dataset skipped)", name, err)
			continue
		}
		found = append(found, Dataset{Name: name, Table: table, Metadata: metadata})
	}
	if len(found) == 0 {
		return nil, errors.Errorf("none of these target files found in input folder %s:\n - %s (or .biom)",
			folder, strings.Join(tried, " (or .biom)\n - "))
	}
	return found, nil
}

// correspondingMeta maps a feature table path to its metadata table:
// /data/ -> /metadata/, tab_ -> meta_, trying .tsv then .txt.
func correspondingMeta(table string) (string, error) {
	rad := strings.TrimSuffix(table, filepath.Ext(table))
	rad = strings.Replace(rad, string(filepath.Separator)+"data"+string(filepath.Separator),
		string(filepath.Separator)+"metadata"+string(filepath.Separator), 1)
	rad = strings.Replace(rad, "tab_", "meta_", 1)
	tsv := rad + ".tsv"
	txt := rad + ".txt"
	if exists(tsv) {
		return tsv, nil
	}
	if exists(txt) {
		return txt, nil
	}
	return "", errors.Errorf("no metadata found for %s (was looking for %s and %s)", table, tsv, txt)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FeatureIDs returns the feature names of the dataset's table, in file
// order. Only TSV tables can be read; biom tables need exporting first.
func (d Dataset) FeatureIDs() ([]string, error) {
	if filepath.Ext(d.Table) != ".tsv" {
		return nil, errors.Errorf("%s: feature names only readable from a .tsv table", d.Table)
	}
	f, err := os.Open(d.Table)
	if err != nil {
		return nil, errors.Wrap(err, "feature names")
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	header := true
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if header {
			header = false
			continue
		}
		id := line
		if i := strings.IndexByte(line, '\t'); i >= 0 {
			id = line[:i]
		}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "feature names")
	}
	return ids, nil
}

// ProjectName shortens a project nickname for the scheduler queue
// display by dropping vowels, falling back to a fixed name when
// nothing is left.
func ProjectName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if !strings.ContainsRune("aeiouyAEIOUY", r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "q2.routine"
	}
	return b.String()
}
