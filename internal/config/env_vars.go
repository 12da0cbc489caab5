package config

import (
	"os"
	"strconv"
	"time"
)

const (
	appNameEnvVar        = "APP_NAME"
	envEnvVar            = "ENV"
	logLevelEnvVar       = "LOG_LEVEL"
	metricsAddrEnvVar    = "METRICS_ADDR"
	identificationEnvVar = "TOKENAUTH_IDENTIFICATION"
	passwordEnvVar       = "TOKENAUTH_PASSWORD"

	serverURLEnvVar           = "TOKENAUTH_SERVER_URL"
	tokenEndpointEnvVar       = "TOKENAUTH_TOKEN_ENDPOINT"
	refreshEndpointEnvVar     = "TOKENAUTH_REFRESH_ENDPOINT"
	identificationFieldEnvVar = "TOKENAUTH_IDENTIFICATION_FIELD"
	tokenPropertyEnvVar       = "TOKENAUTH_TOKEN_PROPERTY"
	tokenExpireFieldEnvVar    = "TOKENAUTH_TOKEN_EXPIRE_FIELD"
	refreshAccessTokensEnvVar = "TOKENAUTH_REFRESH_ACCESS_TOKENS"
	refreshLeewayEnvVar       = "TOKENAUTH_REFRESH_LEEWAY"
	requestTimeoutEnvVar      = "TOKENAUTH_REQUEST_TIMEOUT"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameEnvVar, "Token Session")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envEnvVar, "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, "info")
}

// GetMetricsAddr returns the listen address for the Prometheus endpoint, empty when disabled.
func (EnvVars) GetMetricsAddr() string {
	return GetEnv(metricsAddrEnvVar, "")
}

func (EnvVars) GetIdentification() string {
	return GetEnv(identificationEnvVar, "")
}

func (EnvVars) GetPassword() string {
	return GetEnv(passwordEnvVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func applyAuthEnv(a Auth) Auth {
	if val := os.Getenv(serverURLEnvVar); val != "" {
		a.ServerURL = val
	}
	if val := os.Getenv(tokenEndpointEnvVar); val != "" {
		a.ServerTokenEndpoint = val
	}
	if val := os.Getenv(refreshEndpointEnvVar); val != "" {
		a.ServerTokenRefreshEndpoint = val
	}
	if val := os.Getenv(identificationFieldEnvVar); val != "" {
		a.IdentificationField = val
	}
	if val := os.Getenv(tokenPropertyEnvVar); val != "" {
		a.TokenPropertyName = val
	}
	if val := os.Getenv(tokenExpireFieldEnvVar); val != "" {
		a.TokenExpireFieldName = val
	}
	if val := os.Getenv(refreshAccessTokensEnvVar); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			a.RefreshAccessTokens = &b
		}
	}
	if val := os.Getenv(refreshLeewayEnvVar); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			a.RefreshLeeway = &d
		}
	}
	if val := os.Getenv(requestTimeoutEnvVar); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			a.RequestTimeout = d
		}
	}
	return a
}
