package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sparkify/dwh/internal/aws"
)

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestNewPollModel(t *testing.T) {
	m := NewPollModel("dwhCluster", start)
	if m.Done() {
		t.Error("should not be done initially")
	}
	if m.Init() == nil {
		t.Error("Init should start the spinner")
	}
	if !strings.Contains(m.View(), "dwhCluster") {
		t.Error("view should name the cluster")
	}
}

func TestPollModel_StatusUpdates(t *testing.T) {
	m := NewPollModel("dwhCluster", start)

	result, _ := m.Update(StatusMsg{State: aws.ClusterState{Status: "creating"}, At: start.Add(5 * time.Second)})
	m = result.(PollModel)
	result, _ = m.Update(StatusMsg{State: aws.ClusterState{Status: "creating"}, At: start.Add(65 * time.Second)})
	m = result.(PollModel)

	v := m.View()
	if !strings.Contains(v, "creating") {
		t.Error("view should show the latest status")
	}
	if !strings.Contains(v, "polls: 2") {
		t.Errorf("view should count polls, got:\n%s", v)
	}
	if !strings.Contains(v, "1m05s") {
		t.Errorf("view should show elapsed time, got:\n%s", v)
	}
}

func TestPollModel_FinishedSuccess(t *testing.T) {
	m := NewPollModel("dwhCluster", start)
	result, _ := m.Update(StatusMsg{State: aws.ClusterState{
		Status:   "available",
		Endpoint: "dwhcluster.cabc123xyz.us-west-2.redshift.amazonaws.com",
	}})
	m = result.(PollModel)

	result, cmd := m.Update(FinishedMsg{})
	m = result.(PollModel)
	if cmd == nil {
		t.Error("FinishedMsg should quit the program")
	}
	if !m.Done() || m.Err() != nil {
		t.Errorf("Done() = %v, Err() = %v", m.Done(), m.Err())
	}
	if !strings.Contains(m.View(), "dwhcluster.cabc123xyz") {
		t.Error("view should show the endpoint once available")
	}
}

func TestPollModel_FinishedWithError(t *testing.T) {
	m := NewPollModel("dwhCluster", start)
	result, _ := m.Update(FinishedMsg{Err: errors.New("timed out")})
	m = result.(PollModel)

	if !strings.Contains(m.View(), "timed out") {
		t.Error("view should show the error")
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{5*time.Minute + 3*time.Second, "5m03s"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Errorf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestStatusStyle(t *testing.T) {
	if StatusStyle("available").Render("x") == "" {
		t.Error("expected rendered output")
	}
}
