//go:build linux

package rawsock

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"firestige.xyz/hbtap/internal/core"
	"firestige.xyz/hbtap/internal/log"
	"firestige.xyz/hbtap/internal/reassembly"
)

func TestNewWithoutPrivilege(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root; raw socket creation would succeed")
	}
	_, err := New(testConfig(time.Second), reassembly.Options{}, log.Discard())
	assert.True(t, errors.Is(err, core.ErrPermissionDenied), "got %v", err)
}

func TestNewRejectsIPv6Bind(t *testing.T) {
	cfg := testConfig(time.Second)
	cfg.Bind = "::1"
	_, err := New(cfg, reassembly.Options{}, log.Discard())
	assert.True(t, errors.Is(err, core.ErrConfigInvalid), "got %v", err)
}
