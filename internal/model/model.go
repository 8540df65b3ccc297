// Package model holds the persistent data model (spec §3). Identifiers are
// opaque 128-bit values rendered as UUID strings; timestamps are UTC with at
// least millisecond precision.
package model

import "time"

type WorkspaceRole string

const (
	RoleGuest  WorkspaceRole = "Guest"
	RoleMember WorkspaceRole = "Member"
	RoleAdmin  WorkspaceRole = "Admin"
	RoleOwner  WorkspaceRole = "Owner"
)

// workspaceRoleRank gives the Guest<Member<Admin<Owner ordering used by
// "at least X" checks.
var workspaceRoleRank = map[WorkspaceRole]int{
	RoleGuest:  0,
	RoleMember: 1,
	RoleAdmin:  2,
	RoleOwner:  3,
}

// AtLeast reports whether r is at least as privileged as min.
func (r WorkspaceRole) AtLeast(min WorkspaceRole) bool {
	return workspaceRoleRank[r] >= workspaceRoleRank[min]
}

type ProjectRole string

const (
	ProjectRoleViewer      ProjectRole = "Viewer"
	ProjectRoleEditor      ProjectRole = "Editor"
	ProjectRoleProjectAdmin ProjectRole = "ProjectAdmin"
)

var projectRoleRank = map[ProjectRole]int{
	ProjectRoleViewer:       0,
	ProjectRoleEditor:       1,
	ProjectRoleProjectAdmin: 2,
}

func (r ProjectRole) AtLeast(min ProjectRole) bool {
	return projectRoleRank[r] >= projectRoleRank[min]
}

type User struct {
	ID          string
	Subject     string
	Email       string
	DisplayName string
	CreatedAt   time.Time
	LastLoginAt *time.Time
}

type Workspace struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type WorkspaceMembership struct {
	ID          string
	WorkspaceID string
	UserID      string
	Role        WorkspaceRole
	CreatedAt   time.Time
}

type Project struct {
	ID          string
	WorkspaceID string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProjectMembership struct {
	ID        string
	ProjectID string
	UserID    string
	Role      ProjectRole
	CreatedAt time.Time
}

type FileKind string

const (
	FileKindSource   FileKind = "Source"
	FileKindArtifact FileKind = "Artifact"
)

type FileCategory string

const (
	CategoryIfc        FileCategory = "Ifc"
	CategoryWexBim     FileCategory = "WexBim"
	CategoryProperties FileCategory = "Properties"
	CategoryOther      FileCategory = "Other"
)

type File struct {
	ID               string
	ProjectID        string
	Name             string
	ContentType      string
	SizeBytes        int64
	Checksum         string
	Kind             FileKind
	Category         FileCategory
	StorageProvider  string
	StorageKey       string
	IsDeleted        bool
	CreatedAt        time.Time
	DeletedAt        *time.Time
}

type UploadStatus string

const (
	UploadReserved   UploadStatus = "Reserved"
	UploadUploading  UploadStatus = "Uploading"
	UploadCommitted  UploadStatus = "Committed"
	UploadExpired    UploadStatus = "Expired"
	UploadFailed     UploadStatus = "Failed"
)

type UploadMode string

const (
	UploadModeServerProxy  UploadMode = "ServerProxy"
	UploadModeDirectToBlob UploadMode = "DirectToBlob"
)

type UploadSession struct {
	ID                string
	ProjectID         string
	FileName          string
	ContentType       string
	ExpectedSizeBytes int64
	Status            UploadStatus
	UploadMode        UploadMode
	TempStorageKey    string
	DirectUploadURL   string
	CommittedFileID   string
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

type Model struct {
	ID          string
	ProjectID   string
	Name        string
	Description string
	CreatedAt   time.Time
}

type ModelVersionStatus string

const (
	VersionPending    ModelVersionStatus = "Pending"
	VersionProcessing ModelVersionStatus = "Processing"
	VersionReady      ModelVersionStatus = "Ready"
	VersionFailed     ModelVersionStatus = "Failed"
)

type ModelVersion struct {
	ID               string
	ModelID          string
	VersionNumber    int
	IfcFileID        string
	Status           ModelVersionStatus
	WexBimFileID     string
	PropertiesFileID string
	ErrorMessage     string
	ProcessedAt      *time.Time
	CreatedAt        time.Time
}

type ClientType string

const (
	ClientPublic       ClientType = "Public"
	ClientConfidential ClientType = "Confidential"
)

type OAuthApp struct {
	ID               string
	WorkspaceID      string
	Name             string
	Description      string
	ClientType       ClientType
	ClientID         string
	ClientSecretHash string // PBKDF2Hash.Encode(), Confidential only
	RedirectURIs     []string
	AllowedScopes    map[string]struct{}
	IsEnabled        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CreatedByUserID  string
}

type PKCEMethod string

const (
	PKCES256  PKCEMethod = "S256"
	PKCEPlain PKCEMethod = "plain"
)

type OAuthAuthorizationCode struct {
	CodeValue      string
	AppID          string
	UserID         string
	WorkspaceID    string
	RedirectURI    string
	Scopes         []string
	PKCEChallenge  string
	PKCEMethod     PKCEMethod
	UsedAt         *time.Time
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

type RefreshToken struct {
	TokenHash       string
	AppID           string
	UserID          string
	WorkspaceID     string
	Scopes          []string
	FamilyID        string
	PreviousHash    string
	RevokedAt       *time.Time
	ExpiresAt       time.Time
	CreatedAt       time.Time
	LastRotatedAt   time.Time
}

type PersonalAccessToken struct {
	ID           string
	WorkspaceID  string
	UserID       string
	Name         string
	Description  string
	TokenPrefix  string
	TokenHash    string // PBKDF2Hash.Encode()
	Scopes       []string
	IsRevoked    bool
	RevokedAt    *time.Time
	ExpiresAt    *time.Time
	LastUsedAt   *time.Time
	CreatedAt    time.Time
}

type OAuthAppEventType string

const (
	OAuthAppCreated        OAuthAppEventType = "Created"
	OAuthAppUpdated        OAuthAppEventType = "Updated"
	OAuthAppEnabled        OAuthAppEventType = "Enabled"
	OAuthAppDisabled       OAuthAppEventType = "Disabled"
	OAuthAppDeleted        OAuthAppEventType = "Deleted"
	OAuthAppSecretRotated  OAuthAppEventType = "SecretRotated"
	OAuthAppRefreshIssued  OAuthAppEventType = "RefreshTokenIssued"
)

type PatEventType string

const (
	PatCreated         PatEventType = "Created"
	PatUpdated         PatEventType = "Updated"
	PatRevokedByUser   PatEventType = "RevokedByUser"
	PatRevokedByAdmin  PatEventType = "RevokedByAdmin"
	PatUsed            PatEventType = "Used"
)

type AuditLog struct {
	ID          string
	Subject     string // "oauth_app" or "pat"
	SubjectID   string
	EventType   string
	ActorUserID string
	Timestamp   time.Time
	Details     map[string]interface{}
	IPAddress   string
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "Pending"
	InviteAccepted InviteStatus = "Accepted"
	InviteExpired  InviteStatus = "Expired"
	InviteRevoked  InviteStatus = "Revoked"
)

// WorkspaceInvite supplements the spec's §6 surface
// (POST /workspaces/invites/{token}/accept) which names the endpoint
// without modeling the backing entity.
type WorkspaceInvite struct {
	ID              string
	WorkspaceID     string
	Email           string
	Role            WorkspaceRole
	Token           string
	InvitedByUserID string
	Status          InviteStatus
	CreatedAt       time.Time
	ExpiresAt       time.Time
}

// IFC property-extraction rows, populated by the ExtractProperties handler.
type IfcElement struct {
	ID             string
	ModelVersionID string
	GlobalID       string
	EntityLabel    int64
	TypeName       string
	Name           string
}

type IfcPropertySet struct {
	ID        string
	ElementID string
	Name      string
}

type IfcProperty struct {
	ID           string
	PropertySetID string
	Name         string
	Value        string
}

type IfcQuantitySet struct {
	ID        string
	ElementID string
	Name      string
}

type IfcQuantity struct {
	ID            string
	QuantitySetID string
	Name          string
	Value         float64
	Unit          string
}
