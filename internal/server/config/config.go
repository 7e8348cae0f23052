// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the instafeed server.
//
// Fields:
//   - EndpointAddr: bind address for the public HTTP endpoint.
//   - DatabasePath: path of the embedded document database file.
//   - AppSecret: HMAC secret for signing JWTs and salting password digests.
//     Do not use the test default in prod.
//   - TokenValidityDuration: access token lifetime.
//   - UploadBackend: "disk" or "s3".
//   - UploadDir: directory for uploaded files when the disk backend is used.
//   - StaticURLPrefix: public URL prefix uploaded filenames resolve under.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
type Config struct {
	EndpointAddr          string
	DatabasePath          string
	AppSecret             string
	TokenValidityDuration time.Duration
	UploadBackend         string
	UploadDir             string
	StaticURLPrefix       string
	S3RootUser            string
	S3RootPassword        string
	S3Bucket              string
	S3Region              string
	S3BaseEndpoint        string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":7071"
	c.DatabasePath = "instafeed.db"
	c.AppSecret = "secretKey"
	c.TokenValidityDuration = 24 * time.Hour
	c.UploadBackend = "disk"
	c.UploadDir = "uploads"
	c.StaticURLPrefix = "/static"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "uploads"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
