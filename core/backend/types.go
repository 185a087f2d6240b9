package backend

// Group is a directory security group used as an assignment target.
type Group struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
}

// GroupCreate is the payload for creating a security group.
type GroupCreate struct {
	DisplayName     string `json:"displayName"`
	Description     string `json:"description,omitempty"`
	MailNickname    string `json:"mailNickname"`
	MailEnabled     bool   `json:"mailEnabled"`
	SecurityEnabled bool   `json:"securityEnabled"`
}

// App is a published application artifact.
type App struct {
	ID                      string `json:"id"`
	DisplayName             string `json:"displayName"`
	Description             string `json:"description,omitempty"`
	Publisher               string `json:"publisher,omitempty"`
	FileName                string `json:"fileName,omitempty"`
	SetupFilePath           string `json:"setupFilePath,omitempty"`
	InstallCommandLine      string `json:"installCommandLine,omitempty"`
	UninstallCommandLine    string `json:"uninstallCommandLine,omitempty"`
	CommittedContentVersion string `json:"committedContentVersion,omitempty"`
}

// AppCreate is the payload for creating an application artifact.
type AppCreate struct {
	DisplayName          string `json:"displayName"`
	Description          string `json:"description"`
	Publisher            string `json:"publisher,omitempty"`
	FileName             string `json:"fileName"`
	SetupFilePath        string `json:"setupFilePath"`
	InstallCommandLine   string `json:"installCommandLine,omitempty"`
	UninstallCommandLine string `json:"uninstallCommandLine,omitempty"`
	DetectionScript      string `json:"detectionScript,omitempty"`
	IconBase64           string `json:"iconBase64,omitempty"`
}

// ContentVersion is one uploadable revision of an app's binary content.
type ContentVersion struct {
	ID string `json:"id"`
}

// ContentFile is a file entry within a content version. Its UploadState
// carries the async processing state the waiter polls on.
type ContentFile struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Size            int64  `json:"size"`
	SizeEncrypted   int64  `json:"sizeEncrypted"`
	UploadState     string `json:"uploadState,omitempty"`
	AzureStorageURI string `json:"azureStorageUri,omitempty"`
	IsDependency    bool   `json:"isDependency"`
}

// ContentFileCreate is the payload for registering a content file.
type ContentFileCreate struct {
	Name          string `json:"name"`
	Size          int64  `json:"size"`
	SizeEncrypted int64  `json:"sizeEncrypted"`
	IsDependency  bool   `json:"isDependency"`
}

// FileEncryptionInfo carries the key material the backend needs to decrypt
// committed content.
type FileEncryptionInfo struct {
	EncryptionKey        string `json:"encryptionKey"`
	MacKey               string `json:"macKey"`
	InitializationVector string `json:"initializationVector"`
	Mac                  string `json:"mac"`
	ProfileIdentifier    string `json:"profileIdentifier"`
	FileDigest           string `json:"fileDigest"`
	FileDigestAlgorithm  string `json:"fileDigestAlgorithm"`
}

// AssignmentIntent is the delivery intent of an app assignment.
type AssignmentIntent string

const (
	IntentRequired  AssignmentIntent = "required"
	IntentUninstall AssignmentIntent = "uninstall"
	IntentAvailable AssignmentIntent = "available"
)

// AssignmentTargetType selects what an assignment is aimed at.
type AssignmentTargetType string

const (
	TargetGroup      AssignmentTargetType = "group"
	TargetAllUsers   AssignmentTargetType = "allUsers"
	TargetAllDevices AssignmentTargetType = "allDevices"
)

// AssignmentTarget identifies the audience of an assignment.
type AssignmentTarget struct {
	Type    AssignmentTargetType `json:"type"`
	GroupID string               `json:"groupId,omitempty"`
}

// Assignment binds an app to a target with an intent.
type Assignment struct {
	Intent AssignmentIntent `json:"intent"`
	Target AssignmentTarget `json:"target"`
}

// Remediation is an auto-remediation job bound to a group.
type Remediation struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
}

// RemediationCreate is the payload for creating an auto-remediation job.
type RemediationCreate struct {
	DisplayName       string `json:"displayName"`
	Description       string `json:"description"`
	Publisher         string `json:"publisher,omitempty"`
	DetectionScript   string `json:"detectionScript"`
	RemediationScript string `json:"remediationScript"`
	RunAsAccount      string `json:"runAsAccount,omitempty"`
	GroupID           string `json:"groupId"`
}
