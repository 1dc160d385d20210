package cases

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const groupsYAML = `sex:
- - Male
- - Female
timepoint_months:
- - '>10'
- - '<10'
income:
- - '<15000'
- - '>15000'
- - '>15000'
  - '<30000'
`

func TestParseOrderAndAll(t *testing.T) {
	collection, err := Parse([]byte(groupsYAML))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"sex", "timepoint_months", "income", "ALL"}
	var have []string
	for _, group := range collection.Groups {
		have = append(have, group.Variable)
	}
	if !reflect.DeepEqual(have, want) {
		t.Fatalf("want:%v have:%v", want, have)
	}
	last := collection.Groups[len(collection.Groups)-1]
	if len(last.ValueLists) != 1 || len(last.ValueLists[0]) != 0 {
		t.Fatalf("ALL group must hold a single empty value-list, have:%v", last.ValueLists)
	}
}

func TestParseDeterminism(t *testing.T) {
	first, err := Parse([]byte(groupsYAML))
	if err != nil {
		t.Fatal(err)
	}
	second, err := Parse([]byte(groupsYAML))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expanding twice differs:\n%v\n%v", first, second)
	}
}

func TestParseEmpty(t *testing.T) {
	collection, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(collection.Groups) != 1 || collection.Groups[0].Variable != AllGroup {
		t.Fatalf("empty input must still carry the ALL group, have:%v", collection.Groups)
	}
}

func TestParseNotAMapping(t *testing.T) {
	if _, err := Parse([]byte("- a\n- b\n")); err == nil {
		t.Fatal("expected an error for a sequence document")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(ConfigError); !ok {
		t.Fatalf("want:ConfigError have:%T", err)
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.yml")
	if err := os.WriteFile(path, []byte("a: [unclosed\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error")
	}
}

func TestSpecs(t *testing.T) {
	collection, err := Parse([]byte("site:\n- - A\n- - B\n"))
	if err != nil {
		t.Fatal(err)
	}
	specs := collection.Specs()
	if len(specs) != 3 {
		t.Fatalf("want:3 specs have:%d", len(specs))
	}
	if specs[0].Variable != "site" || specs[2].Variable != AllGroup {
		t.Fatalf("unexpected spec order: %v", specs)
	}
}

func TestBound(t *testing.T) {
	tests := []struct {
		vals []string
		want bool
	}{
		{[]string{"A", "B"}, false},
		{[]string{">10"}, true},
		{[]string{"<5", ">1"}, true},
		{[]string{"A", "<5"}, true}, // a single bound entry makes the whole list bound
		{nil, false},
	}
	for _, tt := range tests {
		spec := Spec{Variable: "v", Values: tt.vals}
		if spec.bound() != tt.want {
			t.Errorf("bound(%v): want:%v have:%v", tt.vals, tt.want, spec.bound())
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		vals     []string
		variable string
		formula  string
		want     string
	}{
		{[]string{">10", "<20"}, "depth", "", "depth_above10-below20"},
		{[]string{"Male"}, "sex", "", "sex_Male"},
		{nil, "ALL", "", "ALL"},
		{[]string{"site (east)"}, "region", "", "region_site-east"},
		{[]string{"a/b"}, "ratio", "", "ratio_ab"},
		{[]string{"Male"}, "sex", "sex+age", "sex_Male_sex+age"},
		{[]string{"_x"}, "v_", "", "v__x"}, // single collapse pass: v___x loses one pair only
	}
	for _, tt := range tests {
		have := Label(tt.vals, tt.variable, tt.formula)
		if have != tt.want {
			t.Errorf("Label(%v, %q, %q): want:%q have:%q",
				tt.vals, tt.variable, tt.formula, tt.want, have)
		}
	}
}

func TestLabelIdempotent(t *testing.T) {
	for i := 0; i < 3; i++ {
		if have := Label([]string{">10", "<20"}, "depth", ""); have != "depth_above10-below20" {
			t.Fatalf("run %d: have:%q", i, have)
		}
	}
}
