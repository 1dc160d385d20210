package permanova

import (
	"reflect"
	"testing"

	"github.com/FranckLejzerowicz/routine-qiime2-analyses/cases"
	"github.com/FranckLejzerowicz/routine-qiime2-analyses/meta"
)

func TestTestingGroups(t *testing.T) {
	collection := cases.Collection{Groups: []cases.Group{
		{Variable: "site", ValueLists: [][]string{{"A"}, {"B"}}},
		{Variable: "age", ValueLists: [][]string{{"<5"}}},
		{Variable: cases.AllGroup, ValueLists: [][]string{{}}},
	}}
	have := testingGroups([]string{"sex", "site", "sex"}, collection)
	// flagged groups and case variables merged, deduplicated, sorted;
	// the ALL placeholder never becomes a testing group
	if want := []string{"age", "sex", "site"}; !reflect.DeepEqual(have, want) {
		t.Fatalf("want:%v have:%v", want, have)
	}
}

func TestTestingGroupsEmpty(t *testing.T) {
	collection := cases.Collection{Groups: []cases.Group{
		{Variable: cases.AllGroup, ValueLists: [][]string{{}}},
	}}
	if have := testingGroups(nil, collection); len(have) != 0 {
		t.Fatalf("want:no groups have:%v", have)
	}
}

func TestCheckGroups(t *testing.T) {
	table := meta.Table{
		Columns: []string{"sample_name", "site", "sex"},
		Rows:    [][]string{{"s1", "A", "F"}},
	}
	have := checkGroups([]string{"age", "sex", "site"}, table, "gut")
	if want := []string{"sex", "site"}; !reflect.DeepEqual(have, want) {
		t.Fatalf("want:%v have:%v", want, have)
	}
}
