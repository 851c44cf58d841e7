// Copyright © 2024 The ELPS authors

package cmd

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/luthersystems/elpsclosure/closure"
	"github.com/luthersystems/elpsclosure/identity"
	"github.com/luthersystems/elpsclosure/library"
	"github.com/luthersystems/elpsclosure/pkgcache"
	"github.com/luthersystems/elpsclosure/reference"
	"github.com/luthersystems/elpsclosure/script"
	"github.com/luthersystems/elpsclosure/searchpath"
	"github.com/spf13/viper"
)

// Configuration keys.  Each may be set in the config file or through an
// ELPSCLOSURE_ environment variable, e.g. ELPSCLOSURE_CLOSURE_DEDUPE.
const (
	keyDedupe          = "closure.dedupe"
	keyRootEnv         = "closure.root_env"
	keyCompanionPrefix = "closure.companion_prefix"
	keyGeneratedDir    = "closure.generated_dir"
	keyCacheDir        = "packages.cache_dir"
	keyS3Endpoint      = "packages.s3.endpoint"
	keyS3Region        = "packages.s3.region"
	keyS3AccessKey     = "packages.s3.access_key"
	keyS3SecretKey     = "packages.s3.secret_key"
	keyS3Bucket        = "packages.s3.bucket"
	keyS3Prefix        = "packages.s3.prefix"
	keyS3UseSSL        = "packages.s3.use_ssl"
	keyLogLevel        = "log.level"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyDedupe, identity.StrategyFileName)
	v.SetDefault(keyRootEnv, searchpath.DefaultRootEnv)
	v.SetDefault(keyCompanionPrefix, closure.DefaultCompanionPrefix)
	v.SetDefault(keyGeneratedDir, filepath.Join(os.TempDir(), "elpsclosure"))
	v.SetDefault(keyCacheDir, defaultCacheDir())
	v.SetDefault(keyS3UseSSL, true)
	v.SetDefault(keyLogLevel, "warn")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "elpsclosure", "packages")
	}
	return filepath.Join(dir, "elpsclosure", "packages")
}

// newCache returns the package cache.  Downloading is only possible when
// withFetcher is set and a bucket is configured.
func newCache(logger *log.Logger, withFetcher bool) (*pkgcache.Cache, error) {
	c := &pkgcache.Cache{
		Dir:    viper.GetString(keyCacheDir),
		Logger: logger,
	}
	if !withFetcher || viper.GetString(keyS3Bucket) == "" {
		return c, nil
	}
	f, err := pkgcache.NewS3Fetcher(pkgcache.S3Config{
		Endpoint:  viper.GetString(keyS3Endpoint),
		Region:    viper.GetString(keyS3Region),
		AccessKey: viper.GetString(keyS3AccessKey),
		SecretKey: viper.GetString(keyS3SecretKey),
		Bucket:    viper.GetString(keyS3Bucket),
		Prefix:    viper.GetString(keyS3Prefix),
		UseSSL:    viper.GetBool(keyS3UseSSL),
	})
	if err != nil {
		return nil, err
	}
	c.Fetcher = f
	return c, nil
}

func newSearchProvider(logger *log.Logger) *searchpath.Provider {
	return &searchpath.Provider{
		RootEnv: viper.GetString(keyRootEnv),
		Logger:  logger,
	}
}

// newBuilder assembles a closure builder from configuration.  Closure
// resolution never downloads packages.
func newBuilder(logger *log.Logger) (*closure.Builder, error) {
	strategy, err := identity.ParseStrategy(viper.GetString(keyDedupe), &identity.ProcessProber{Stderr: os.Stderr})
	if err != nil {
		return nil, err
	}
	if lb, ok := strategy.(*identity.LoadBased); ok {
		lb.Logger = logger
	}
	cache, err := newCache(logger, false)
	if err != nil {
		return nil, err
	}
	agg := reference.New(&library.Resolver{}, cache)
	agg.Logger = logger
	return &closure.Builder{
		Search:     newSearchProvider(logger),
		Aggregator: agg,
		Strategy:   strategy,
		Companion:  &closure.Companion{Prefix: viper.GetString(keyCompanionPrefix)},
		ScriptOptions: []script.Option{
			script.WithPackageResolver(cache),
			script.WithGeneratedDir(viper.GetString(keyGeneratedDir)),
		},
		Logger: logger,
	}, nil
}
