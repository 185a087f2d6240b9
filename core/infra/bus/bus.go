package bus

import (
	"time"
)

// DeployEvent announces a deployment unit lifecycle transition.
type DeployEvent struct {
	UnitID      string    `json:"unit_id"`
	PackageID   string    `json:"package_id"`
	DisplayName string    `json:"display_name"`
	Phase       string    `json:"phase"`
	Status      string    `json:"status,omitempty"`
	Error       string    `json:"error,omitempty"`
	Time        time.Time `json:"time"`
}

// Publisher emits deployment lifecycle events.
type Publisher interface {
	PublishDeployEvent(event DeployEvent) error
	Close()
}

// Noop implements Publisher without emitting anything.
type Noop struct{}

func (Noop) PublishDeployEvent(DeployEvent) error { return nil }
func (Noop) Close()                               {}
