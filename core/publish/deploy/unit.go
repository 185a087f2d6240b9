package deploy

import (
	"time"

	"github.com/google/uuid"
)

// Status is the terminal outcome of one deployment unit.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Availability selects the optional "available" assignment targets.
type Availability string

const (
	AvailabilityNone   Availability = "None"
	AvailabilityUser   Availability = "User"
	AvailabilityDevice Availability = "Device"
	AvailabilityBoth   Availability = "Both"
)

// ParseAvailability validates an availability mode string.
func ParseAvailability(s string) (Availability, bool) {
	switch Availability(s) {
	case AvailabilityNone, AvailabilityUser, AvailabilityDevice, AvailabilityBoth:
		return Availability(s), true
	}
	return "", false
}

// Package identifies one package to publish.
type Package struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"displayName"`
	Publisher   string `yaml:"publisher,omitempty"`
}

// Options controls a deployment run.
type Options struct {
	Force            bool
	AvailableInstall Availability
}

// Unit is one package's end-to-end run. It exists only in memory; the
// terminal stage-result record is the caller-visible output.
type Unit struct {
	ID          string
	PackageID   string
	DisplayName string
	WorkDir     string

	InstallGroupID   string
	UninstallGroupID string
	RemediationID    string
	ScriptPaths      map[string]string
	AppID            string
	ContentVersionID string
	Uploaded         bool
	Assigned         bool

	Status     Status
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

func newUnit(pkg Package, workDir string) *Unit {
	return &Unit{
		ID:          uuid.NewString(),
		PackageID:   pkg.ID,
		DisplayName: pkg.DisplayName,
		WorkDir:     workDir,
		ScriptPaths: make(map[string]string),
		StartedAt:   time.Now().UTC(),
	}
}

func (u *Unit) finish(status Status, err error) *Unit {
	u.Status = status
	if err != nil {
		u.Error = err.Error()
	}
	u.FinishedAt = time.Now().UTC()
	return u
}

// Summary aggregates a batch run's per-unit outcomes.
type Summary struct {
	Units   []*Unit
	Success int
	Failed  int
	Skipped int
}

func (s *Summary) add(u *Unit) {
	s.Units = append(s.Units, u)
	switch u.Status {
	case StatusSuccess:
		s.Success++
	case StatusFailed:
		s.Failed++
	case StatusSkipped:
		s.Skipped++
	}
}
