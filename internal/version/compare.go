package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

const developmentBuild = "main"

// CheckConfigCompatibility reports whether a configuration written for
// configVersion can be loaded by the running appVersion.
//
// Rules:
//   - an empty config version or a "main" build on either side skips the check
//   - major versions must match
//   - the config minor version must not be newer than the app minor version
//   - patch versions are ignored
func CheckConfigCompatibility(appVersion, configVersion string) error {
	appVersion = strings.TrimPrefix(strings.TrimSpace(appVersion), "v")
	configVersion = strings.TrimPrefix(strings.TrimSpace(configVersion), "v")

	if configVersion == "" || appVersion == developmentBuild || configVersion == developmentBuild {
		return nil
	}

	app, err := semver.NewVersion(appVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid autotrader version %q", appVersion)
	}

	cfg, err := semver.NewVersion(configVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "invalid config version %q", configVersion)
	}

	if app.Major() != cfg.Major() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"config targets autotrader %d.x.x but this is %d.x.x", cfg.Major(), app.Major())
	}

	if cfg.Minor() > app.Minor() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration,
			"config targets autotrader %d.%d.x but this is %d.%d.x, upgrade to load it",
			cfg.Major(), cfg.Minor(), app.Major(), app.Minor())
	}

	return nil
}
