package model

import "time"

// GameState values are the externally visible per-title states. The string
// values are the wire names consumed by UI listeners.
const (
	StateUnknown         = "unknown"
	StateNotInstalled    = "not_installed"
	StateCheckingStatus  = "checking_status"
	StateUpdateAvailable = "update_available"
	StateReadyToLaunch   = "installed"
	StateInstallPending  = "install_pending"
	StateDownloading     = "downloading"
	StateVerifying       = "verifying"
	StateInstalling      = "installing"
	StateLaunchPending   = "launch_pending"
	StateLaunching       = "launching"
	StateRunning         = "running"
	StateInstallFailed   = "install_failed"
	StateLaunchFailed    = "launch_failed"
	StateUpdateFailed    = "update_failed"
	StateIdle            = "idle"
)

// Operation constants name the long-running operations the core can run on a
// title. They appear in task descriptions and the task history store.
const (
	OpInstall = "install"
	OpUpdate  = "update"
	OpVerify  = "verify"
)

// TitleRecord describes one installable title as loaded from the catalog.
// The executable path is relative to the install path.
type TitleRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ManifestURL    string `json:"manifest_url"`
	InstallPath    string `json:"install_path"`
	ExecutablePath string `json:"executable_path"`
	Version        string `json:"version"`
}

// StatusUpdate is one state transition published to listeners. Updates are
// immutable snapshots; no shared mutable object crosses the subscriber
// boundary.
type StatusUpdate struct {
	EventID   string    `json:"event_id"`
	TitleID   string    `json:"title_id"`
	State     string    `json:"state"`
	Progress  *int      `json:"progress,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
