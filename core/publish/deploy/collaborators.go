package deploy

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/packbridge/packbridge/core/backend"
)

// API is the slice of the backend surface the orchestrator drives.
// *backend.Client satisfies it.
type API interface {
	ListGroupsByName(ctx context.Context, displayName string) ([]backend.Group, error)
	CreateGroup(ctx context.Context, req *backend.GroupCreate) (string, error)
	ListAppsByName(ctx context.Context, displayName string) ([]backend.App, error)
	CreateApp(ctx context.Context, req *backend.AppCreate) (*backend.App, error)
	CreateContentVersion(ctx context.Context, appID string) (*backend.ContentVersion, error)
	CreateContentFile(ctx context.Context, appID, versionID string, req *backend.ContentFileCreate) (string, error)
	GetContentFile(ctx context.Context, locator string) (*backend.ContentFile, error)
	RenewUpload(ctx context.Context, locator string) error
	CommitFile(ctx context.Context, locator string, enc backend.FileEncryptionInfo) error
	SetCommittedContentVersion(ctx context.Context, appID, versionID string) error
	CreateAssignment(ctx context.Context, appID string, assignment backend.Assignment) error
	ListRemediationsByName(ctx context.Context, displayName string) ([]backend.Remediation, error)
	CreateRemediation(ctx context.Context, req *backend.RemediationCreate) (string, error)
	HasRemediationEntitlement(ctx context.Context) (bool, error)
}

// IconResolver locates an icon image for a package. A nil image with a nil
// error means no icon is available.
type IconResolver interface {
	FindIcon(ctx context.Context, packageID, displayName string) ([]byte, error)
}

// LicenseProbe reports whether the tenant may create auto-remediation jobs.
type LicenseProbe interface {
	HasEntitlement(ctx context.Context) (bool, error)
}

// DirIconResolver serves icons from a local directory keyed by package ID.
type DirIconResolver struct {
	Dir string
}

func (r DirIconResolver) FindIcon(ctx context.Context, packageID, displayName string) ([]byte, error) {
	if r.Dir == "" || packageID == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(r.Dir, SanitizeFileName(packageID)+".png"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// BackendLicenseProbe queries the backend's licensing surface.
type BackendLicenseProbe struct {
	API API
}

func (p BackendLicenseProbe) HasEntitlement(ctx context.Context) (bool, error) {
	return p.API.HasRemediationEntitlement(ctx)
}

// StaticLicenseProbe returns a fixed entitlement answer.
type StaticLicenseProbe bool

func (p StaticLicenseProbe) HasEntitlement(ctx context.Context) (bool, error) {
	return bool(p), nil
}
