package database

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the connection parameters for one database on one
// MySQL instance
type Config struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Validate checks if the connection configuration has all required parameters
func (c *Config) Validate() error {
	var errs []error

	if c.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, errors.New("port must be between 1 and 65535"))
	}

	if c.User == "" {
		errs = append(errs, errors.New("user is required"))
	}

	if c.Database == "" {
		errs = append(errs, errors.New("database name is required"))
	}

	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second // Set default timeout
	}

	if len(errs) > 0 {
		return fmt.Errorf("connection configuration validation failed: %v", errs)
	}

	return nil
}

// DSN returns the Data Source Name for MySQL connection
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?timeout=%s&parseTime=true&charset=utf8mb4",
		c.User, c.Password, c.Host, c.Port, c.Database, c.Timeout)
}

// Address returns the host:port pair for logging
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
