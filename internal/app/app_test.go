package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/maxbolgarin/contem"
	"github.com/maxbolgarin/logze/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A zero config is the documented default deployment; construction must
// fill in every default (ledger store path included) and come up with
// the engine disabled instead of failing when the checkout is missing.
func TestNewWithEmptyConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	ctx := contem.New(contem.WithLogger(logze.DefaultPtr()))
	defer ctx.Shutdown()

	cfg := Config{}
	cfg.Scheduler.SetDefaults()

	service, err := New(ctx, cfg)
	require.NoError(t, err)

	// The store was created at the default location, not at "".
	_, err = os.Stat(filepath.Join(".autover", "ledger.jsonl"))
	require.NoError(t, err)

	// The working directory is not a git repository, so the backend
	// probe fails and the engine latches into disabled mode.
	assert.False(t, service.engine.Status().Healthy)

	// The ops surface still reports every component.
	assert.NotNil(t, service.opsServer)
	assert.NotNil(t, service.scheduler)
}
