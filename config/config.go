// Package config holds the scheduler resource requests of each
// generation stage, with built-in defaults overridable from a user
// YAML file.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Resources are the cluster resources requested for one stage's jobs.
type Resources struct {
	Time   string // walltime hours
	Nodes  string
	Procs  string
	Mem    string
	MemDim string // mb or gb
}

// Params resolves per-analysis resources.
type Params struct {
	v *viper.Viper
}

var defaults = map[string]Resources{
	"default":            {Time: "4", Nodes: "1", Procs: "1", Mem: "1", MemDim: "gb"},
	"alpha":              {Time: "4", Nodes: "1", Procs: "1", Mem: "1", MemDim: "gb"},
	"merge_alpha":        {Time: "2", Nodes: "1", Procs: "1", Mem: "150", MemDim: "mb"},
	"alpha_correlations": {Time: "10", Nodes: "1", Procs: "1", Mem: "1", MemDim: "gb"},
	"volatility":         {Time: "2", Nodes: "1", Procs: "1", Mem: "100", MemDim: "mb"},
	"alpha_kw":           {Time: "2", Nodes: "1", Procs: "1", Mem: "2", MemDim: "gb"},
	"beta":               {Time: "24", Nodes: "1", Procs: "4", Mem: "2", MemDim: "gb"},
	"export_beta":        {Time: "2", Nodes: "1", Procs: "1", Mem: "200", MemDim: "mb"},
	"pcoa":               {Time: "4", Nodes: "1", Procs: "1", Mem: "2", MemDim: "gb"},
	"emperor":            {Time: "2", Nodes: "1", Procs: "1", Mem: "1", MemDim: "gb"},
	"permanova":          {Time: "2", Nodes: "1", Procs: "1", Mem: "1", MemDim: "gb"},
	"taxonomy":           {Time: "24", Nodes: "1", Procs: "4", Mem: "8", MemDim: "gb"},
	"barplot":            {Time: "2", Nodes: "1", Procs: "1", Mem: "1", MemDim: "gb"},
	"doc":                {Time: "24", Nodes: "1", Procs: "4", Mem: "4", MemDim: "gb"},
}

// Load builds the params from the built-in defaults, merged with the
// optional YAML file at path when given. The file maps analysis name
// to any subset of {time, nodes, procs, mem, mem_dim}.
func Load(path string) (Params, error) {
	v := viper.New()
	for analysis, res := range defaults {
		v.SetDefault(analysis+".time", res.Time)
		v.SetDefault(analysis+".nodes", res.Nodes)
		v.SetDefault(analysis+".procs", res.Procs)
		v.SetDefault(analysis+".mem", res.Mem)
		v.SetDefault(analysis+".mem_dim", res.MemDim)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Params{}, errors.Wrapf(err, "run params %s", path)
		}
	}
	return Params{v: v}, nil
}

// For returns the resources of the named analysis, falling back to the
// default section for analyses without their own entry.
func (p Params) For(analysis string) Resources {
	section := analysis
	if !p.v.IsSet(section + ".time") {
		section = "default"
	}
	return Resources{
		Time:   p.v.GetString(section + ".time"),
		Nodes:  p.v.GetString(section + ".nodes"),
		Procs:  p.v.GetString(section + ".procs"),
		Mem:    p.v.GetString(section + ".mem"),
		MemDim: p.v.GetString(section + ".mem_dim"),
	}
}
