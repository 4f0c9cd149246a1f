package version

import (
	"testing"

	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfigCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		appVersion    string
		configVersion string
		expectError   bool
		errorContains string
	}{
		{
			name:          "exact match",
			appVersion:    "1.2.0",
			configVersion: "1.2.0",
		},
		{
			name:          "app patch higher",
			appVersion:    "1.2.3",
			configVersion: "1.2.0",
		},
		{
			name:          "config patch higher",
			appVersion:    "1.2.0",
			configVersion: "1.2.7",
		},
		{
			name:          "app minor higher",
			appVersion:    "1.4.0",
			configVersion: "1.2.0",
		},
		{
			name:          "config minor higher",
			appVersion:    "1.2.0",
			configVersion: "1.3.0",
			expectError:   true,
			errorContains: "upgrade",
		},
		{
			name:          "major differs",
			appVersion:    "2.0.0",
			configVersion: "1.9.0",
			expectError:   true,
			errorContains: "1.x.x",
		},
		{
			name:          "empty config version",
			appVersion:    "1.2.0",
			configVersion: "",
		},
		{
			name:          "development app build",
			appVersion:    "main",
			configVersion: "9.0.0",
		},
		{
			name:          "development config",
			appVersion:    "1.2.0",
			configVersion: "main",
		},
		{
			name:          "v prefix on both",
			appVersion:    "v1.2.0",
			configVersion: "v1.2.0",
		},
		{
			name:          "prerelease app",
			appVersion:    "1.2.0-beta.1",
			configVersion: "1.2.0",
		},
		{
			name:          "invalid config version",
			appVersion:    "1.2.0",
			configVersion: "latest",
			expectError:   true,
			errorContains: "invalid config version",
		},
		{
			name:          "invalid app version",
			appVersion:    "not-a-version",
			configVersion: "1.2.0",
			expectError:   true,
			errorContains: "invalid autotrader version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConfigCompatibility(tt.appVersion, tt.configVersion)
			if !tt.expectError {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorContains)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}

func TestGetVersion(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	Version = "1.5.0"
	assert.Equal(t, "1.5.0", GetVersion())
}
