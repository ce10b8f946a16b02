package model

type ProjectType string

const (
	ProjectJava     ProjectType = "java"
	ProjectFrontend ProjectType = "frontend"
	ProjectPython   ProjectType = "python"
	ProjectOther    ProjectType = "other"
)

// CommandItem is one step of an ordered command list. Disabled items stay
// in the list so they can still be edited.
type CommandItem struct {
	ID      string `json:"id" yaml:"id"`
	Command string `json:"command" yaml:"command"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type DeployConfig struct {
	ID          string      `json:"id" yaml:"id"`
	ServerID    string      `json:"serverId" yaml:"serverId"`
	ProjectName string      `json:"projectName" yaml:"projectName"`
	ProjectType ProjectType `json:"projectType" yaml:"projectType"`

	LocalPath    string `json:"localPath" yaml:"localPath"`
	BuildCommand string `json:"buildCommand,omitempty" yaml:"buildCommand,omitempty"`
	ArtifactPath string `json:"artifactPath,omitempty" yaml:"artifactPath,omitempty"`

	PreDeployCommands []CommandItem `json:"preDeployCommands,omitempty" yaml:"preDeployCommands,omitempty"`

	RemotePath string `json:"remotePath" yaml:"remotePath"`

	PostDeployCommands []CommandItem `json:"postDeployCommands,omitempty" yaml:"postDeployCommands,omitempty"`
	StartCommand       string        `json:"startCommand,omitempty" yaml:"startCommand,omitempty"`

	// nil means enabled
	EnableUpload *bool `json:"enableUpload,omitempty" yaml:"enableUpload,omitempty"`

	LogCommand  string `json:"logCommand,omitempty" yaml:"logCommand,omitempty"`
	AutoViewLog bool   `json:"autoViewLog,omitempty" yaml:"autoViewLog,omitempty"`
}

func (d *DeployConfig) UploadEnabled() bool {
	return d.EnableUpload == nil || *d.EnableUpload
}
