// Copyright © 2024 The ELPS authors

package searchpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/luthersystems/elpsclosure/elpstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRootEnv = "ELPSCLOSURE_TEST_ROOT"

func testProvider(t *testing.T, root string) *Provider {
	t.Setenv(testRootEnv, root)
	return &Provider{RootEnv: testRootEnv, Logger: elpstest.TestLogger(t)}
}

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultConfigName), []byte(content), 0o600))
}

func TestDirs_Unset(t *testing.T) {
	p := testProvider(t, "")
	assert.Nil(t, p.Dirs())
}

func TestDirs_NoConfig(t *testing.T) {
	root := t.TempDir()
	p := testProvider(t, root)
	assert.Equal(t, []string{filepath.Join(root, "lib")}, p.Dirs())
}

func TestDirs_Config(t *testing.T) {
	root := t.TempDir()
	t.Setenv("ELPSCLOSURE_TEST_A", "/opt/a")
	t.Setenv("ELPSCLOSURE_TEST_B", "/opt/b")
	writeConfig(t, root, `<?xml version="1.0"?>
<settings>
  <searchDirs>$ELPSCLOSURE_TEST_A; ;%ELPSCLOSURE_TEST_B%/x;${ELPSCLOSURE_TEST_A};/opt/c</searchDirs>
</settings>`)
	p := testProvider(t, root)
	assert.Equal(t, []string{
		filepath.Join(root, "lib"),
		"/opt/a",
		"/opt/b/x",
		"/opt/c",
	}, p.Dirs())
}

func TestDirs_BadConfigIsIgnored(t *testing.T) {
	configs := []string{
		`<elps><searchDirs>/opt/a</elps>`,
		`<elps><other>/opt/a</other></elps>`,
		`not xml at all`,
	}
	for _, conf := range configs {
		root := t.TempDir()
		writeConfig(t, root, conf)
		p := testProvider(t, root)
		assert.Equal(t, []string{filepath.Join(root, "lib")}, p.Dirs(), "config: %s", conf)
	}
}

func TestParseConfig(t *testing.T) {
	_, err := ParseConfig([]byte(`<elps/>`))
	assert.ErrorIs(t, err, ErrNoSearchDirs)

	dirs, err := ParseConfig([]byte(`<elps><searchDirs></searchDirs></elps>`))
	require.NoError(t, err)
	assert.Empty(t, dirs)
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize(nil))
	assert.Equal(t, []string{"/a", "/b", "/A"}, Normalize([]string{"", "/a", " ", "/b", "/a", " /b ", "/A"}))

	// Normalizing is idempotent.
	once := Normalize([]string{"/x", "/y", "/x", ""})
	assert.Equal(t, once, Normalize(once))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("ELPSCLOSURE_TEST_V", "val")
	tests := []struct {
		in, out string
	}{
		{"plain", "plain"},
		{"$ELPSCLOSURE_TEST_V/x", "val/x"},
		{"${ELPSCLOSURE_TEST_V}x", "valx"},
		{`%ELPSCLOSURE_TEST_V%\x`, `val\x`},
		{"100%", "100%"},
		{"$ELPSCLOSURE_TEST_UNSET", ""},
	}
	for _, test := range tests {
		assert.Equal(t, test.out, ExpandEnv(test.in), "input: %q", test.in)
	}
}

func TestUserScriptsDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	want := filepath.Join(home, "Documents", "ElpsScripts")
	p := &Provider{Logger: elpstest.TestLogger(t)}
	assert.Equal(t, want, p.UserScriptsDir())
	info, err := os.Stat(want)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// A second call finds the existing directory.
	assert.Equal(t, want, UserScriptsDir())
}

func TestUserScriptsDir_Unavailable(t *testing.T) {
	home := t.TempDir()
	// A file where the Documents directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(home, "Documents"), nil, 0o600))
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	p := &Provider{Logger: elpstest.TestLogger(t)}
	assert.Equal(t, "", p.UserScriptsDir())
}
