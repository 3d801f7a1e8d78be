// Package config loads process configuration from environment variables.
//
// It wraps github.com/joho/godotenv for .env files and
// github.com/caarlos0/env/v11 for struct tags. Each configuration struct type
// is parsed once and cached, so packages can call Load for the same type
// without re-reading the environment:
//
//	var cfg jobqueue.Config
//	config.MustLoad(&cfg)
//
// LoadEnv reads extra .env files before the first Load; ResetCache clears the
// cache between tests.
package config
