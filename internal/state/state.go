package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sparkify/dwh/internal/config"
)

// Phase is a completed pipeline action.
type Phase string

const (
	PhaseProvisioned   Phase = "provisioned"
	PhaseSchemaCreated Phase = "schema_created"
	PhaseLoaded        Phase = "loaded"
)

// State is the last known record of what the pipeline has done. It is
// informational; live cluster state always comes from the provider.
type State struct {
	LastUpdated time.Time            `yaml:"last_updated"`
	Phases      map[Phase]PhaseState `yaml:"phases,omitempty"`
	Cluster     *ClusterRecord       `yaml:"cluster,omitempty"`
	RowCounts   map[string]int64     `yaml:"row_counts,omitempty"`
}

// ClusterRecord is what was provisioned.
type ClusterRecord struct {
	Identifier string `yaml:"identifier"`
	Endpoint   string `yaml:"endpoint"`
	RoleARN    string `yaml:"role_arn"`
	Region     string `yaml:"region"`
}

// PhaseState tracks when a phase last completed.
type PhaseState struct {
	Status      string    `yaml:"status"`
	CompletedAt time.Time `yaml:"completed_at,omitempty"`
}

// Load reads the state file. A missing file yields a fresh state.
func Load(path string) (*State, error) {
	if path == "" {
		path = config.DefaultStateFile
	}

	data, err := os.ReadFile(config.ExpandHome(path))
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	s := &State{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	if s.Phases == nil {
		s.Phases = make(map[Phase]PhaseState)
	}
	return s, nil
}

// Save writes the state file, creating its directory.
func (s *State) Save(path string) error {
	if path == "" {
		path = config.DefaultStateFile
	}
	path = config.ExpandHome(path)

	s.LastUpdated = time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// New creates an empty state.
func New() *State {
	return &State{
		LastUpdated: time.Now(),
		Phases:      make(map[Phase]PhaseState),
	}
}

// Complete marks a phase as done now.
func (s *State) Complete(phase Phase) {
	s.Phases[phase] = PhaseState{
		Status:      "complete",
		CompletedAt: time.Now(),
	}
}

// IsComplete returns true if the phase has completed.
func (s *State) IsComplete(phase Phase) bool {
	ps, ok := s.Phases[phase]
	return ok && ps.Status == "complete"
}

// Reset forgets everything, after the resources are torn down.
func (s *State) Reset() {
	s.Phases = make(map[Phase]PhaseState)
	s.Cluster = nil
	s.RowCounts = nil
}
