package configs

import (
	"log"
	"os"
	"path/filepath"

	"github.com/PolarWolf314/keystash/internal/utils"
)

type UserSettings struct {
	// CacheRoot is the default parent directory of keystash caches.
	CacheRoot       string
	UserConfigsPath string
	Username        string
}

var UserKeystashSettings *UserSettings

func init() {
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		var err error
		cacheDir, err = os.UserCacheDir()
		if err != nil {
			homeDir, homeErr := os.UserHomeDir()
			if homeErr != nil {
				log.Fatalf("error getting cache directory: %s", err)
			}
			cacheDir = filepath.Join(homeDir, ".cache")
		}
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		log.Fatalf("error getting config directory: %s", err)
	}

	username, err := utils.GetUsername()
	if err != nil {
		log.Fatalf("error getting username: %s", err)
	}

	// Independent of the working directory, so it is ok to init here.
	UserKeystashSettings = &UserSettings{
		CacheRoot:       filepath.Join(cacheDir, "keystash"),
		UserConfigsPath: filepath.Join(configDir, "keystash"),
		Username:        username,
	}
}
