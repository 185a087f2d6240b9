package reconcile

// Kind identifies the flavor of reconciled resource.
type Kind string

const (
	KindInstall     Kind = "Install"
	KindUninstall   Kind = "Uninstall"
	KindRemediation Kind = "Remediation"
)

// DeriveName maps (kind, package display name) to the resource's logical
// name. The convention is a pure function so re-runs resolve to the same
// resource.
func DeriveName(kind Kind, displayName string) string {
	switch kind {
	case KindInstall:
		return displayName + " Required"
	case KindUninstall:
		return displayName + " Uninstall"
	case KindRemediation:
		return displayName + " Remediation"
	default:
		return displayName
	}
}
