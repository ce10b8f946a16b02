package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"deployer-backend/internal/deploy"
	"deployer-backend/internal/model"
	applog "deployer-backend/internal/pkg/logger"
	"deployer-backend/pkg/utils"
)

type SSHService struct {
	newSession func() deploy.RemoteSession
	logger     *applog.Logger
}

func NewSSHService(newSession func() deploy.RemoteSession, logger *applog.Logger) *SSHService {
	if logger == nil {
		logger = applog.NewNop()
	}
	return &SSHService{
		newSession: newSession,
		logger:     logger,
	}
}

// TestConnection opens a session to server and runs a couple of probe
// commands. The session is always closed before returning.
func (s *SSHService) TestConnection(ctx context.Context, server model.ServerConfig) *model.SSHTestResponse {
	target := fmt.Sprintf("%s:%d", server.Host, server.Port)
	s.logger.SSHConnectionAttempt(string(server.AuthType), target)

	sess := s.newSession()
	defer sess.Disconnect()

	if err := sess.Connect(ctx, server); err != nil {
		s.logger.Warn("SSH connection test failed", zap.String("target", target), zap.Error(err))
		return &model.SSHTestResponse{
			Success: false,
			Message: utils.NewSSHError(err).Error(),
			Details: []string{
				"✗ SSH connection failed",
				fmt.Sprintf("Error: %s", err.Error()),
			},
		}
	}

	details := []string{"✓ SSH connection established"}
	probes := []struct {
		label   string
		command string
	}{
		{"Current user", "whoami"},
		{"System", "uname -a"},
	}
	for _, p := range probes {
		var out []string
		if err := sess.Execute(p.command, func(line string) { out = append(out, line) }); err != nil {
			details = append(details, fmt.Sprintf("✗ %s: %v", p.label, err))
			continue
		}
		details = append(details, fmt.Sprintf("✓ %s: %s", p.label, strings.Join(out, " ")))
	}

	s.logger.Info("SSH connection test succeeded", zap.String("target", target))
	return &model.SSHTestResponse{
		Success: true,
		Message: "Connection successful",
		Details: details,
	}
}
