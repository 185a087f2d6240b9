// Package deploy sequences one package's end-to-end publication: resource
// reconciliation, script generation, packaging, chunked upload, commit, and
// assignment.
package deploy

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/packbridge/packbridge/core/backend"
	"github.com/packbridge/packbridge/core/infra/bus"
	"github.com/packbridge/packbridge/core/infra/logging"
	"github.com/packbridge/packbridge/core/infra/metrics"
	"github.com/packbridge/packbridge/core/publish/await"
	"github.com/packbridge/packbridge/core/publish/packaging"
	"github.com/packbridge/packbridge/core/publish/reconcile"
	"github.com/packbridge/packbridge/core/publish/scripting"
	"github.com/packbridge/packbridge/core/publish/transfer"
)

// Async processing stage names polled by the waiter. The stage name is the
// only variable; the poll state machine is identical for all three.
const (
	StageStorageRequest = "AzureStorageUriRequest"
	StageRenewal        = "AzureStorageUriRenewal"
	StageCommit         = "CommitFile"
)

// Orchestrator drives deployment units through their stage sequence.
type Orchestrator struct {
	API        API
	Scripts    scripting.Generator
	Packager   packaging.Packager
	Icons      IconResolver
	License    LicenseProbe
	Reconciler *reconcile.Reconciler
	Uploader   *transfer.Uploader
	Waiter     *await.Waiter
	Tag        string
	Metrics    metrics.Metrics
	Events     bus.Publisher
}

// New wires an orchestrator with default components around a backend API.
func New(api API, tag string) *Orchestrator {
	o := &Orchestrator{
		API:        api,
		Scripts:    scripting.TemplateGenerator{},
		Packager:   packaging.CryptoPackager{},
		Icons:      DirIconResolver{},
		License:    BackendLicenseProbe{API: api},
		Reconciler: reconcile.New(tag),
		Uploader:   transfer.New(),
		Tag:        tag,
		Metrics:    metrics.Noop{},
		Events:     bus.Noop{},
	}
	o.Waiter = await.New(o.getProcessingState)
	return o
}

func (o *Orchestrator) waiter() *await.Waiter {
	if o.Waiter != nil {
		return o.Waiter
	}
	o.Waiter = await.New(o.getProcessingState)
	return o.Waiter
}

func (o *Orchestrator) getProcessingState(ctx context.Context, locator string) (await.Resource, error) {
	f, err := o.API.GetContentFile(ctx, locator)
	if err != nil {
		return await.Resource{}, err
	}
	return await.Resource{State: f.UploadState, StorageURI: f.AzureStorageURI}, nil
}

func (o *Orchestrator) metrics() metrics.Metrics {
	if o.Metrics != nil {
		return o.Metrics
	}
	return metrics.Noop{}
}

func (o *Orchestrator) events() bus.Publisher {
	if o.Events != nil {
		return o.Events
	}
	return bus.Noop{}
}

// Deploy runs one package through the full stage sequence. Errors after the
// existence check are caught here and downgraded to the unit's Failed
// status; resources already created stay in place so a retried run resumes
// through the existence checks.
func (o *Orchestrator) Deploy(ctx context.Context, pkg Package, workDir string, opts Options) *Unit {
	unit := newUnit(pkg, workDir)
	o.publishEvent(unit, "started", "")

	skip, err := o.alreadyPublished(ctx, pkg.DisplayName)
	if err != nil {
		return o.finishUnit(unit, StatusFailed, err)
	}
	if skip && !opts.Force {
		logging.Info("deploy", "artifact already published", "package", pkg.ID, "name", pkg.DisplayName)
		return o.finishUnit(unit, StatusSkipped, nil)
	}

	if err := o.runStages(ctx, unit, pkg, opts); err != nil {
		logging.Error("deploy", "deployment failed", "package", pkg.ID, "error", err)
		return o.finishUnit(unit, StatusFailed, err)
	}
	return o.finishUnit(unit, StatusSuccess, nil)
}

func (o *Orchestrator) finishUnit(unit *Unit, status Status, err error) *Unit {
	unit.finish(status, err)
	o.metrics().IncDeployments(string(status))
	phase := map[Status]string{StatusSuccess: "succeeded", StatusFailed: "failed", StatusSkipped: "skipped"}[status]
	o.publishEvent(unit, phase, unit.Error)
	return unit
}

func (o *Orchestrator) publishEvent(unit *Unit, phase, errMsg string) {
	err := o.events().PublishDeployEvent(bus.DeployEvent{
		UnitID:      unit.ID,
		PackageID:   unit.PackageID,
		DisplayName: unit.DisplayName,
		Phase:       phase,
		Status:      string(unit.Status),
		Error:       errMsg,
	})
	if err != nil {
		logging.Warn("deploy", "event publish failed", "phase", phase, "error", err)
	}
}

// alreadyPublished reports whether an artifact with this display name and
// the engine's description tag exists.
func (o *Orchestrator) alreadyPublished(ctx context.Context, displayName string) (bool, error) {
	apps, err := o.API.ListAppsByName(ctx, displayName)
	if err != nil {
		return false, fmt.Errorf("query existing artifacts: %w", err)
	}
	for _, app := range apps {
		if app.DisplayName == displayName && strings.Contains(app.Description, o.Tag) {
			return true, nil
		}
	}
	return false, nil
}

func (o *Orchestrator) runStages(ctx context.Context, unit *Unit, pkg Package, opts Options) error {
	if err := o.ensureGroups(ctx, unit, pkg); err != nil {
		return err
	}
	if err := o.generateScripts(ctx, unit, pkg); err != nil {
		return err
	}
	if err := o.ensureRemediation(ctx, unit, pkg); err != nil {
		return err
	}

	manifest, err := o.buildPackage(ctx, unit)
	if err != nil {
		return err
	}
	if err := o.uploadContent(ctx, unit, pkg, manifest, opts); err != nil {
		return err
	}
	return o.assign(ctx, unit, opts)
}

func (o *Orchestrator) ensureGroups(ctx context.Context, unit *Unit, pkg Package) error {
	find := func(ctx context.Context, name string) (string, bool, error) {
		groups, err := o.API.ListGroupsByName(ctx, name)
		if err != nil {
			return "", false, err
		}
		for _, g := range groups {
			if g.DisplayName == name {
				return g.ID, true, nil
			}
		}
		return "", false, nil
	}
	create := func(ctx context.Context, name, tag string) (string, error) {
		return o.API.CreateGroup(ctx, &backend.GroupCreate{
			DisplayName:     name,
			Description:     tag,
			MailNickname:    SanitizeFileName(name),
			SecurityEnabled: true,
		})
	}

	installID, err := o.Reconciler.Ensure(ctx, reconcile.KindInstall,
		reconcile.DeriveName(reconcile.KindInstall, pkg.DisplayName), find, create)
	if err != nil {
		return fmt.Errorf("ensure install group: %w", err)
	}
	unit.InstallGroupID = installID

	uninstallID, err := o.Reconciler.Ensure(ctx, reconcile.KindUninstall,
		reconcile.DeriveName(reconcile.KindUninstall, pkg.DisplayName), find, create)
	if err != nil {
		return fmt.Errorf("ensure uninstall group: %w", err)
	}
	unit.UninstallGroupID = uninstallID
	return nil
}

func (o *Orchestrator) generateScripts(ctx context.Context, unit *Unit, pkg Package) error {
	scriptDir := filepath.Join(unit.WorkDir, "scripts")
	if err := os.MkdirAll(scriptDir, 0o755); err != nil {
		return fmt.Errorf("create script dir: %w", err)
	}
	for _, kind := range []scripting.Kind{scripting.KindInstall, scripting.KindUninstall, scripting.KindDetection} {
		body, err := o.Scripts.GenerateScript(ctx, pkg.ID, pkg.DisplayName, kind)
		if err != nil {
			return fmt.Errorf("generate %s script: %w", kind, err)
		}
		name := SanitizeFileName(fmt.Sprintf("%s_%s.ps1", pkg.DisplayName, strings.ToLower(string(kind))))
		path := filepath.Join(scriptDir, name)
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			return fmt.Errorf("persist %s script: %w", kind, err)
		}
		unit.ScriptPaths[string(kind)] = path
	}
	return nil
}

// ensureRemediation creates the auto-remediation job bound to the install
// group when the tenant is entitled. Missing entitlement skips the stage
// without failing the run.
func (o *Orchestrator) ensureRemediation(ctx context.Context, unit *Unit, pkg Package) error {
	entitled, err := o.License.HasEntitlement(ctx)
	if err != nil {
		return fmt.Errorf("licensing probe: %w", err)
	}
	if !entitled {
		logging.Info("deploy", "remediation skipped, tenant not entitled", "package", pkg.ID)
		return nil
	}

	detection, err := o.Scripts.GenerateScript(ctx, pkg.ID, pkg.DisplayName, scripting.KindDetection)
	if err != nil {
		return fmt.Errorf("generate remediation detection script: %w", err)
	}
	install, err := o.Scripts.GenerateScript(ctx, pkg.ID, pkg.DisplayName, scripting.KindInstall)
	if err != nil {
		return fmt.Errorf("generate remediation script: %w", err)
	}

	find := func(ctx context.Context, name string) (string, bool, error) {
		jobs, err := o.API.ListRemediationsByName(ctx, name)
		if err != nil {
			return "", false, err
		}
		for _, j := range jobs {
			if j.DisplayName == name {
				return j.ID, true, nil
			}
		}
		return "", false, nil
	}
	create := func(ctx context.Context, name, tag string) (string, error) {
		return o.API.CreateRemediation(ctx, &backend.RemediationCreate{
			DisplayName:       name,
			Description:       tag,
			DetectionScript:   detection,
			RemediationScript: install,
			RunAsAccount:      "system",
			GroupID:           unit.InstallGroupID,
		})
	}

	id, err := o.Reconciler.Ensure(ctx, reconcile.KindRemediation,
		reconcile.DeriveName(reconcile.KindRemediation, pkg.DisplayName), find, create)
	if err != nil {
		return fmt.Errorf("ensure remediation: %w", err)
	}
	unit.RemediationID = id
	return nil
}

func (o *Orchestrator) buildPackage(ctx context.Context, unit *Unit) (*packaging.Manifest, error) {
	installPath, ok := unit.ScriptPaths[string(scripting.KindInstall)]
	if !ok {
		return nil, fmt.Errorf("install script missing")
	}
	manifest, err := o.Packager.BuildPackage(ctx, filepath.Dir(installPath), filepath.Base(installPath), unit.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("build package: %w", err)
	}
	return manifest, nil
}

func (o *Orchestrator) uploadContent(ctx context.Context, unit *Unit, pkg Package, manifest *packaging.Manifest, opts Options) error {
	var iconBase64 string
	if o.Icons != nil {
		icon, err := o.Icons.FindIcon(ctx, pkg.ID, pkg.DisplayName)
		if err != nil {
			logging.Warn("deploy", "icon lookup failed", "package", pkg.ID, "error", err)
		} else if len(icon) > 0 {
			iconBase64 = base64.StdEncoding.EncodeToString(icon)
		}
	}
	detection, _ := os.ReadFile(unit.ScriptPaths[string(scripting.KindDetection)])

	app, err := o.API.CreateApp(ctx, &backend.AppCreate{
		DisplayName:          pkg.DisplayName,
		Description:          o.Tag,
		Publisher:            pkg.Publisher,
		FileName:             filepath.Base(manifest.PackageFile),
		SetupFilePath:        manifest.SetupFileName,
		InstallCommandLine:   manifest.InstallCommandLine,
		UninstallCommandLine: manifest.UninstallCommandLine,
		DetectionScript:      string(detection),
		IconBase64:           iconBase64,
	})
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	unit.AppID = app.ID

	version, err := o.API.CreateContentVersion(ctx, app.ID)
	if err != nil {
		return fmt.Errorf("create content version: %w", err)
	}
	unit.ContentVersionID = version.ID

	locator, err := o.API.CreateContentFile(ctx, app.ID, version.ID, &backend.ContentFileCreate{
		Name:          filepath.Base(manifest.PackageFile),
		Size:          manifest.UnencryptedSize,
		SizeEncrypted: manifest.EncryptedSize,
	})
	if err != nil {
		return fmt.Errorf("register content file: %w", err)
	}

	res, err := o.waiter().WaitFor(ctx, locator, StageStorageRequest)
	if err != nil {
		return fmt.Errorf("wait for storage target: %w", err)
	}
	if res.StorageURI == "" {
		return fmt.Errorf("backend returned no storage uri")
	}

	target := &renewableTarget{orch: o, locator: locator, uri: res.StorageURI}
	if err := o.Uploader.Upload(ctx, target, manifest.PackageFile); err != nil {
		return fmt.Errorf("upload content: %w", err)
	}
	unit.Uploaded = true

	if err := o.API.CommitFile(ctx, locator, manifest.Encryption); err != nil {
		return fmt.Errorf("commit content file: %w", err)
	}
	if _, err := o.waiter().WaitFor(ctx, locator, StageCommit); err != nil {
		return fmt.Errorf("wait for commit confirmation: %w", err)
	}
	if err := o.API.SetCommittedContentVersion(ctx, app.ID, version.ID); err != nil {
		return fmt.Errorf("finalize content version: %w", err)
	}
	return nil
}

// assign binds the confirmed artifact to its groups. It only runs after the
// artifact is finalized; no assignment call is made on upload failure.
func (o *Orchestrator) assign(ctx context.Context, unit *Unit, opts Options) error {
	assignments := []backend.Assignment{
		{Intent: backend.IntentRequired, Target: backend.AssignmentTarget{Type: backend.TargetGroup, GroupID: unit.InstallGroupID}},
		{Intent: backend.IntentUninstall, Target: backend.AssignmentTarget{Type: backend.TargetGroup, GroupID: unit.UninstallGroupID}},
	}
	switch opts.AvailableInstall {
	case AvailabilityUser:
		assignments = append(assignments, backend.Assignment{Intent: backend.IntentAvailable, Target: backend.AssignmentTarget{Type: backend.TargetAllUsers}})
	case AvailabilityDevice:
		assignments = append(assignments, backend.Assignment{Intent: backend.IntentAvailable, Target: backend.AssignmentTarget{Type: backend.TargetAllDevices}})
	case AvailabilityBoth:
		assignments = append(assignments,
			backend.Assignment{Intent: backend.IntentAvailable, Target: backend.AssignmentTarget{Type: backend.TargetAllUsers}},
			backend.Assignment{Intent: backend.IntentAvailable, Target: backend.AssignmentTarget{Type: backend.TargetAllDevices}})
	}
	for _, a := range assignments {
		if err := o.API.CreateAssignment(ctx, unit.AppID, a); err != nil {
			return fmt.Errorf("assign %s/%s: %w", a.Intent, a.Target.Type, err)
		}
	}
	unit.Assigned = true
	return nil
}
