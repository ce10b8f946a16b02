// Package runfile loads an ad-hoc server and project pair from YAML so a
// deployment can run without the config store.
package runfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"deployer-backend/internal/model"
	"deployer-backend/pkg/utils"
)

// RunFile is the document layout:
//
//	server:
//	  host: 10.0.0.5
//	  username: deploy
//	  authType: key
//	  privateKeyPath: ~/.ssh/id_ed25519
//	project:
//	  projectName: shop
//	  localPath: .
//	  artifactPath: dist
//	  remotePath: /var/www/shop
type RunFile struct {
	Server  model.ServerConfig `yaml:"server"`
	Project model.DeployConfig `yaml:"project"`
}

const defaultID = "adhoc"

// Load reads and validates a run file.
func Load(path string) (*RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a run file and fills defaults. The password is expanded
// from the environment so it can be kept out of the file.
func Parse(data []byte) (*RunFile, error) {
	var rf RunFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse run file: %w", err)
	}

	s := &rf.Server
	if s.ID == "" {
		s.ID = defaultID
	}
	if s.Name == "" {
		s.Name = s.Host
	}
	if s.Port == 0 {
		s.Port = 22
	}
	if s.AuthType == "" {
		s.AuthType = model.AuthPassword
	}
	s.Password = os.ExpandEnv(s.Password)
	s.PrivateKeyPath = expandHome(s.PrivateKeyPath)

	p := &rf.Project
	if p.ID == "" {
		p.ID = defaultID
	}
	if p.ProjectType == "" {
		p.ProjectType = model.ProjectOther
	}
	p.ServerID = s.ID

	if err := utils.ValidateServerConfig(s); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	if err := utils.ValidateDeployConfig(p); err != nil {
		return nil, fmt.Errorf("project: %w", err)
	}
	return &rf, nil
}

func expandHome(p string) string {
	if len(p) < 2 || p[:2] != "~/" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return home + p[1:]
}
