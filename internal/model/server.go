package model

type AuthType string

const (
	AuthPassword AuthType = "password"
	AuthKey      AuthType = "key"
)

type ServerConfig struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Host           string   `json:"host" yaml:"host"`
	Port           int      `json:"port" yaml:"port"`
	Username       string   `json:"username" yaml:"username"`
	AuthType       AuthType `json:"authType" yaml:"authType"`
	Password       string   `json:"password,omitempty" yaml:"password,omitempty"`
	PrivateKeyPath string   `json:"privateKeyPath,omitempty" yaml:"privateKeyPath,omitempty"`
	GroupID        string   `json:"groupId,omitempty" yaml:"groupId,omitempty"`
}

// EnvironmentGroup is a labelled set of servers, e.g. staging.
type EnvironmentGroup struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}
