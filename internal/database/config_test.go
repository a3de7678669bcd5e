package database

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		valid  bool
	}{
		{
			name: "valid config",
			config: Config{
				Host: "localhost", Port: 3306, User: "dump", Password: "secret", Database: "shop",
			},
			valid: true,
		},
		{
			name: "minimum valid port",
			config: Config{
				Host: "localhost", Port: 1, User: "dump", Database: "shop",
			},
			valid: true,
		},
		{
			name: "maximum valid port",
			config: Config{
				Host: "localhost", Port: 65535, User: "dump", Database: "shop",
			},
			valid: true,
		},
		{
			name: "empty password is valid",
			config: Config{
				Host: "localhost", Port: 3306, User: "root", Database: "shop", Password: "",
			},
			valid: true,
		},
		{
			name:   "missing host",
			config: Config{Port: 3306, User: "dump", Database: "shop"},
			valid:  false,
		},
		{
			name:   "port out of range",
			config: Config{Host: "localhost", Port: 70000, User: "dump", Database: "shop"},
			valid:  false,
		},
		{
			name:   "missing user",
			config: Config{Host: "localhost", Port: 3306, Database: "shop"},
			valid:  false,
		},
		{
			name:   "missing database",
			config: Config{Host: "localhost", Port: 3306, User: "dump"},
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid config but got error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("Expected invalid config but got no error")
			}
		})
	}
}

func TestConfigValidateDefaultsTimeout(t *testing.T) {
	config := Config{Host: "localhost", Port: 3306, User: "dump", Database: "shop"}

	if err := config.Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Expected timeout default of 30s, got %v", config.Timeout)
	}
}

func TestConfigDSN(t *testing.T) {
	config := Config{
		Host:     "db.example.com",
		Port:     3307,
		User:     "dump",
		Password: "secret",
		Database: "shop",
		Timeout:  10 * time.Second,
	}

	dsn := config.DSN()

	if !strings.HasPrefix(dsn, "dump:secret@tcp(db.example.com:3307)/shop?") {
		t.Errorf("Unexpected DSN prefix: %s", dsn)
	}
	for _, param := range []string{"timeout=10s", "parseTime=true", "charset=utf8mb4"} {
		if !strings.Contains(dsn, param) {
			t.Errorf("Expected DSN to contain %q, got %s", param, dsn)
		}
	}
}

func TestConfigAddress(t *testing.T) {
	config := Config{Host: "db.example.com", Port: 3306}
	if got := config.Address(); got != "db.example.com:3306" {
		t.Errorf("Expected db.example.com:3306, got %s", got)
	}
}

func BenchmarkConfigDSN(b *testing.B) {
	config := Config{
		Host:     "localhost",
		Port:     3306,
		User:     "dump",
		Password: "secret",
		Database: "shop",
		Timeout:  30 * time.Second,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = config.DSN()
	}
}
