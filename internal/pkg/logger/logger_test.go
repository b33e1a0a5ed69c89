package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HectorPOsuna/escaner-red/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHook_SplitsByType(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.LogConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: filepath.Join(dir, "app.log"),
		MaxSize:  1,
	}
	_, err := InitLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { LoggerInstance = nil })

	LogAudit("conflict_detected", "equipos", "recorded", "", "", map[string]interface{}{"ip": "10.0.0.5"})
	LogSystemEvent("ingest", "startup", "ready", logrus.InfoLevel, nil)
	Infof("plain entry")

	for _, name := range []string{"audit.log", "system.log", "app.log"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

func TestUpdateConfig_KeepsOutput(t *testing.T) {
	lm, err := InitLogger(&config.LogConfig{Level: "info", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	t.Cleanup(func() { LoggerInstance = nil })

	err = lm.UpdateConfig(&config.LogConfig{Level: "debug", Format: "text", Output: "file", FilePath: "/tmp/x.log"})
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, lm.GetLogger().GetLevel())
	assert.Equal(t, "stdout", lm.GetConfig().Output)
	assert.Equal(t, "", lm.GetConfig().FilePath)

	assert.Error(t, lm.UpdateConfig(&config.LogConfig{Level: "loud", Format: "text"}))
}

func TestInitLogger_RejectsUnknownFormat(t *testing.T) {
	_, err := InitLogger(&config.LogConfig{Level: "info", Format: "xml", Output: "stdout"})
	assert.Error(t, err)
	_, err = InitLogger(nil)
	assert.Error(t, err)
}
