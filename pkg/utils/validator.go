package utils

import (
	"fmt"
	"net"
	"strings"

	"deployer-backend/internal/model"
)

func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return NewValidationError("port", port)
	}
	return nil
}

// ValidateHost accepts an IP address or a DNS name.
func ValidateHost(host string) error {
	if host == "" {
		return NewValidationError("host", host)
	}
	if net.ParseIP(host) != nil {
		return nil
	}
	if len(host) > 253 {
		return NewValidationError("host", host)
	}
	for _, label := range strings.Split(strings.TrimSuffix(host, "."), ".") {
		if len(label) == 0 || len(label) > 63 {
			return NewValidationError("host", host)
		}
		for _, c := range label {
			if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-') {
				return NewValidationError("host", host)
			}
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return NewValidationError("host", host)
		}
	}
	return nil
}

func ValidateServerConfig(s *model.ServerConfig) error {
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("name", s.Name)
	}
	if err := ValidateHost(s.Host); err != nil {
		return err
	}
	if err := ValidatePort(s.Port); err != nil {
		return err
	}
	if s.Username == "" {
		return NewValidationError("username", s.Username)
	}
	// exactly one credential, matching the auth mode
	switch s.AuthType {
	case model.AuthPassword:
		if s.Password == "" {
			return NewValidationError("password", "")
		}
		if s.PrivateKeyPath != "" {
			return NewValidationError("privateKeyPath", s.PrivateKeyPath)
		}
	case model.AuthKey:
		if s.PrivateKeyPath == "" {
			return NewValidationError("privateKeyPath", s.PrivateKeyPath)
		}
		if s.Password != "" {
			return NewValidationError("password", "<redacted>")
		}
	default:
		return NewValidationError("authType", s.AuthType)
	}
	return nil
}

func ValidateDeployConfig(d *model.DeployConfig) error {
	if strings.TrimSpace(d.ProjectName) == "" {
		return NewValidationError("projectName", d.ProjectName)
	}
	if d.ServerID == "" {
		return NewValidationError("serverId", d.ServerID)
	}
	switch d.ProjectType {
	case model.ProjectJava, model.ProjectFrontend, model.ProjectPython, model.ProjectOther:
	default:
		return NewValidationError("projectType", d.ProjectType)
	}
	if d.UploadEnabled() {
		if d.LocalPath == "" {
			return NewValidationError("localPath", d.LocalPath)
		}
		if d.RemotePath == "" {
			return NewValidationError("remotePath", d.RemotePath)
		}
	}
	if err := validateCommands("preDeployCommands", d.PreDeployCommands); err != nil {
		return err
	}
	return validateCommands("postDeployCommands", d.PostDeployCommands)
}

func validateCommands(field string, items []model.CommandItem) error {
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if item.ID == "" {
			continue
		}
		if seen[item.ID] {
			return NewValidationError(fmt.Sprintf("%s[%d].id", field, i), item.ID)
		}
		seen[item.ID] = true
	}
	return nil
}
