// Package queries holds the named SQL statements the pipeline runs. The
// default set targets Redshift; a YAML file can replace it, which is how
// tests run the same sequences against plain Postgres.
package queries

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// Statement is one SQL statement with a name used in logs and errors.
type Statement struct {
	Name string `yaml:"name"`
	SQL  string `yaml:"sql"`
}

// QuerySet is the four ordered statement sequences of a full run. Order
// within each sequence matters: drops and creates respect foreign keys,
// and transforms fill dimensions before the fact table.
type QuerySet struct {
	Drop      []Statement `yaml:"drop"`
	Create    []Statement `yaml:"create"`
	Copy      []Statement `yaml:"copy"`
	Transform []Statement `yaml:"transform"`
}

// CopyParams are substituted into statement templates.
type CopyParams struct {
	LogData     string
	LogJSONPath string
	SongData    string
	RoleARN     string
	Region      string
}

// Tables in the default schema.
const (
	StagingEvents = "staging_events"
	StagingSongs  = "staging_songs"
	FactSongplay  = "factSongplay"
	DimUser       = "dimUser"
	DimSong       = "dimSong"
	DimArtist     = "dimArtist"
	DimTime       = "dimTime"
)

// TableNames lists every table the default schema creates.
func TableNames() []string {
	return []string{StagingEvents, StagingSongs, FactSongplay, DimUser, DimSong, DimArtist, DimTime}
}

// Default returns the Redshift star schema with COPY sources filled in.
func Default(p CopyParams) (*QuerySet, error) {
	qs := &QuerySet{
		Drop:      cloneStatements(dropStatements),
		Create:    cloneStatements(createStatements),
		Copy:      cloneStatements(copyStatements),
		Transform: cloneStatements(transformStatements),
	}
	if err := qs.render(p); err != nil {
		return nil, err
	}
	return qs, nil
}

// LoadFile reads a query set from YAML and renders it with p.
func LoadFile(path string, p CopyParams) (*QuerySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}

	qs := &QuerySet{}
	if err := yaml.Unmarshal(data, qs); err != nil {
		return nil, fmt.Errorf("parsing query file %s: %w", path, err)
	}
	if err := qs.Validate(); err != nil {
		return nil, fmt.Errorf("query file %s: %w", path, err)
	}
	if err := qs.render(p); err != nil {
		return nil, err
	}
	return qs, nil
}

// Validate checks every sequence is non-empty, names are unique within a
// sequence, and no statement is blank.
func (qs *QuerySet) Validate() error {
	for _, seq := range qs.sequences() {
		if len(seq.stmts) == 0 {
			return fmt.Errorf("%s sequence is empty", seq.name)
		}
		seen := make(map[string]bool, len(seq.stmts))
		for i, st := range seq.stmts {
			if st.Name == "" {
				return fmt.Errorf("%s statement %d has no name", seq.name, i)
			}
			if seen[st.Name] {
				return fmt.Errorf("%s statement name %q is duplicated", seq.name, st.Name)
			}
			seen[st.Name] = true
			if strings.TrimSpace(st.SQL) == "" {
				return fmt.Errorf("%s statement %q has no SQL", seq.name, st.Name)
			}
		}
	}
	return nil
}

type sequence struct {
	name  string
	stmts []Statement
}

func (qs *QuerySet) sequences() []sequence {
	return []sequence{
		{"drop", qs.Drop},
		{"create", qs.Create},
		{"copy", qs.Copy},
		{"transform", qs.Transform},
	}
}

func (qs *QuerySet) render(p CopyParams) error {
	for _, seq := range [][]Statement{qs.Drop, qs.Create, qs.Copy, qs.Transform} {
		for i := range seq {
			sql, err := renderSQL(seq[i].Name, seq[i].SQL, p)
			if err != nil {
				return err
			}
			seq[i].SQL = sql
		}
	}
	return nil
}

var funcs = template.FuncMap{
	// quote escapes a value for use inside a single-quoted SQL literal.
	"quote": func(s string) string { return strings.ReplaceAll(s, "'", "''") },
}

func renderSQL(name, text string, p CopyParams) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing statement %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("rendering statement %s: %w", name, err)
	}
	return buf.String(), nil
}

func cloneStatements(in []Statement) []Statement {
	out := make([]Statement, len(in))
	copy(out, in)
	return out
}
