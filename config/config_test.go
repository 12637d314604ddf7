package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("MEALS_AUTH_JWT_SECRET", "test-secret-key-for-unit-testing")

	cfg, err := loadFromDir(t, "")
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望默认端口 8080，实际=%d", cfg.Server.Port)
	}
	if cfg.Lunch.RolloverHour != 12 || cfg.Lunch.LockStartHour != 9 || cfg.Lunch.LockEndHour != 12 {
		t.Errorf("报餐时间默认值错误: %+v", cfg.Lunch)
	}
	if cfg.Realtime.PublishTimeout != 2*time.Second {
		t.Errorf("期望 publish_timeout=2s，实际=%s", cfg.Realtime.PublishTimeout)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("期望默认 driver=postgres，实际=%s", cfg.Database.Driver)
	}
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
server:
  port: 9090
db:
  driver: sqlite
  sqlite_path: /tmp/meals.db
auth:
  jwt_secret: file-secret-key-0123456789
lunch:
  timezone: UTC
  lock_start_hour: 8
`)
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("期望 port=9090，实际=%d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("期望 driver=sqlite，实际=%s", cfg.Database.Driver)
	}
	if cfg.Lunch.LockStartHour != 8 {
		t.Errorf("期望 lock_start_hour=8，实际=%d", cfg.Lunch.LockStartHour)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "postgres"},
			Auth:     AuthConfig{JWTSecret: "0123456789abcdef"},
			Lunch:    LunchConfig{Timezone: "UTC", RolloverHour: 12, LockStartHour: 9, LockEndHour: 12},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"合法配置", func(c *Config) {}, false},
		{"密钥为空", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"密钥过短", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }, true},
		{"未知驱动", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"时区无效", func(c *Config) { c.Lunch.Timezone = "Mars/Olympus" }, true},
		{"锁定区间颠倒", func(c *Config) { c.Lunch.LockStartHour = 12; c.Lunch.LockEndHour = 9 }, true},
		{"切换小时越界", func(c *Config) { c.Lunch.RolloverHour = 24 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

// loadFromDir 在临时工作目录下加载（不存在 config.yaml，走默认值）
func loadFromDir(t *testing.T, path string) (*Config, error) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("获取工作目录失败: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("切换工作目录失败: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return Load(path)
}
