package model

type SSHTestRequest struct {
	Host           string   `json:"host" binding:"required"`
	Port           int      `json:"port" binding:"required"`
	Username       string   `json:"username" binding:"required"`
	AuthType       AuthType `json:"authType" binding:"required,oneof=password key"`
	Password       string   `json:"password"`
	PrivateKeyPath string   `json:"privateKeyPath"`
}

func (r *SSHTestRequest) ServerConfig() ServerConfig {
	return ServerConfig{
		Host:           r.Host,
		Port:           r.Port,
		Username:       r.Username,
		AuthType:       r.AuthType,
		Password:       r.Password,
		PrivateKeyPath: r.PrivateKeyPath,
	}
}
