package config

import (
	"encoding/base64"
	"fmt"
)

const defaultJitsiDomain = "8x8.vc"

type Config struct {
	DatabaseDSN    string
	ServerAddr     string
	SigningKey     []byte
	AllowedOrigins []string
	// JitsiDomain is the host serving the embedded conferencing widget.
	JitsiDomain string
	// JaaSAppID is the conferencing provider account identifier prefixed
	// to every room name.
	JaaSAppID string
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret, jaasAppID string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	if jaasAppID == "" {
		return nil, fmt.Errorf("conferencing app id cannot be empty")
	}

	// Decode the base64 encoded signing secret
	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	return &Config{
		DatabaseDSN:    databaseDSN,
		ServerAddr:     serverAddr,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		JitsiDomain:    defaultJitsiDomain,
		JaaSAppID:      jaasAppID,
	}, nil
}
