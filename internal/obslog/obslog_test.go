package obslog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/require"
)

func TestParseLevelRecognisesKnownNames(t *testing.T) {
	require.Equal(t, logiface.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, logiface.LevelWarning, ParseLevel("warn"))
	require.Equal(t, logiface.LevelDisabled, ParseLevel("off"))
	require.Equal(t, logiface.LevelInformational, ParseLevel(""))
	require.Equal(t, logiface.LevelInformational, ParseLevel("not-a-level"))
}

func TestLevelFromEnvDefaultsWhenUnset(t *testing.T) {
	t.Setenv("TASKRUN_LOG_LEVEL", "")
	require.Equal(t, logiface.LevelInformational, LevelFromEnv())

	t.Setenv("TASKRUN_LOG_LEVEL", "trace")
	require.Equal(t, logiface.LevelTrace, LevelFromEnv())
}

func TestNewWritesStructuredLineToWriter(t *testing.T) {
	var buf bytes.Buffer
	log := New(logiface.LevelInformational, &buf)

	log.Info().Str("job_id", "build").Log("run finished")

	require.Contains(t, buf.String(), "run finished")
	require.Contains(t, buf.String(), "build")
}

func TestNewSuppressesBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(logiface.LevelWarning, &buf)

	log.Info().Log("should not appear")
	require.Empty(t, buf.String())

	log.Err().Log("should appear")
	require.NotEmpty(t, buf.String())
}

func TestObserverErrorHookLogsIDAndError(t *testing.T) {
	var buf bytes.Buffer
	log := New(logiface.LevelError, &buf)
	hook := ObserverErrorHook(log)

	hook(7, errors.New("observer boom"))

	require.Contains(t, buf.String(), "observer boom")
	require.Contains(t, buf.String(), "observer_id")
}
