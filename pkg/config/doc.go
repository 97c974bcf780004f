// Package config loads application configuration from environment
// variables into typed structs.
//
// It combines godotenv (optional .env file for development) with
// caarlos0/env struct-tag parsing and caches each configuration type so
// it is parsed at most once per process:
//
//	type ServerConfig struct {
//	    Addr string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg ServerConfig
//	config.MustLoad(&cfg)
//
// Packages own their config structs; the cache makes repeated Load
// calls for the same type cheap and consistent.
package config
