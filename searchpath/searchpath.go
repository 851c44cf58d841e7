// Copyright © 2024 The ELPS authors

// Package searchpath computes the directories probed for native libraries
// used by ELPS scripts.
//
// The search path is rooted at the directory named by an environment
// variable (ELPS_DIR by default).  The root's library directory is always
// searched and an XML configuration file in the root may add more:
//
//	<elps>
//	    <searchDirs>/opt/elps/lib;$HOME/lib;%TOOLS%\lib</searchDirs>
//	</elps>
package searchpath

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
)

// Defaults used by a zero Provider.
const (
	DefaultRootEnv    = "ELPS_DIR"
	DefaultConfigName = "elps_config.xml"
	DefaultLibDir     = "lib"
)

// Provider computes the installation search path.  The zero value uses the
// defaults above.
type Provider struct {
	RootEnv    string
	ConfigName string
	LibDir     string
	Logger     *log.Logger
}

func (p *Provider) logger() *log.Logger {
	if p != nil && p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Root returns the installation root or "" when the root variable is unset.
func (p *Provider) Root() string {
	return strings.TrimSpace(os.Getenv(or(p.RootEnv, DefaultRootEnv)))
}

// Dirs returns the installation library directory followed by the
// directories listed in the configuration file.  Dirs returns nil when the
// root variable is not set.  Configuration problems are logged and never
// fail the computation.
func (p *Provider) Dirs() []string {
	root := p.Root()
	if root == "" {
		return nil
	}
	dirs := []string{filepath.Join(root, or(p.LibDir, DefaultLibDir))}
	conf := filepath.Join(root, or(p.ConfigName, DefaultConfigName))
	extra, err := ReadConfig(conf)
	if err != nil {
		p.logger().Debug("ignoring search path configuration", "file", conf, "err", err)
	}
	return Normalize(append(dirs, extra...))
}

// ErrNoSearchDirs is returned by ParseConfig when the document has no
// searchDirs element.
var ErrNoSearchDirs = errors.New("configuration has no searchDirs element")

type config struct {
	XMLName    xml.Name
	SearchDirs *string `xml:"searchDirs"`
}

// ReadConfig reads the search directories listed in the configuration file at
// path.
func ReadConfig(path string) ([]string, error) {
	b, err := os.ReadFile(path) //nolint:gosec // configuration path derives from the installation root
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig extracts the search directories from a configuration document.
// The root element may have any name.  Entries are separated by ';' and are
// environment expanded.
func ParseConfig(b []byte) ([]string, error) {
	var c config
	if err := xml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("malformed configuration: %w", err)
	}
	if c.SearchDirs == nil {
		return nil, ErrNoSearchDirs
	}
	var dirs []string
	for _, d := range strings.Split(*c.SearchDirs, ";") {
		dirs = append(dirs, ExpandEnv(strings.TrimSpace(d)))
	}
	return Normalize(dirs), nil
}

// Normalize removes empty and duplicate entries from dirs, keeping the first
// occurrence of each.  Entries are compared exactly after trimming space.
func Normalize(dirs []string) []string {
	var out []string
	seen := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

var windowsVar = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_()]*)%`)

// ExpandEnv replaces $VAR, ${VAR} and %VAR% references in s with the values
// of the corresponding environment variables.  Unset variables expand to the
// empty string.
func ExpandEnv(s string) string {
	if strings.Contains(s, "%") {
		s = windowsVar.ReplaceAllStringFunc(s, func(m string) string {
			return os.Getenv(m[1 : len(m)-1])
		})
	}
	return os.ExpandEnv(s)
}

// UserScriptsDirName is the location of the user's scripts relative to the
// home directory.
var UserScriptsDirName = filepath.Join("Documents", "ElpsScripts")

// UserScriptsDir returns the user's scripts directory, creating it when it
// does not exist.  It returns "" when the directory is unavailable.
func UserScriptsDir() string {
	return userScriptsDir(log.Default())
}

// UserScriptsDir is like the package function but logs through p's logger.
func (p *Provider) UserScriptsDir() string {
	return userScriptsDir(p.logger())
}

func userScriptsDir(logger *log.Logger) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		logger.Debug("no home directory for user scripts", "err", err)
		return ""
	}
	dir := filepath.Join(home, UserScriptsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Debug("unable to create user scripts directory", "dir", dir, "err", err)
		return ""
	}
	return dir
}
