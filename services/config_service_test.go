package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openpnp-go/controller/pkg/config"
	customlog "github.com/openpnp-go/controller/pkg/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const machineYAML = `version: "1.0"
config_id: "bench"
machine_id: "m1"
units: "mm"
heads:
  - id: "H1"
    nozzles:
      - id: "N1"
        offset: {x: 1, y: 2}
`

type notifyPublisher struct {
	called chan struct{}
}

func (p *notifyPublisher) PublishConfigUpdatedNotification() error {
	p.called <- struct{}{}
	return nil
}

func newService(t *testing.T, contents string) (MachineConfigService, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "machine.yaml")
	if contents != "" {
		require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	}
	service, err := NewMachineConfigService(path, customlog.NewNopLogger())
	require.NoError(t, err)
	return service, path
}

func TestLoadsConfigOnCreate(t *testing.T) {
	service, _ := newService(t, machineYAML)

	cfg := service.GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "m1", cfg.MachineID)
	assert.Equal(t, "null", cfg.Driver.Type)

	raw, err := service.GetCurrentConfigYAML()
	require.NoError(t, err)
	assert.Equal(t, machineYAML, string(raw))
}

func TestMissingFileLeavesConfigNil(t *testing.T) {
	service, _ := newService(t, "")

	assert.Nil(t, service.GetCurrentConfig())
	_, err := service.GetCurrentConfigYAML()
	assert.Error(t, err)
}

func TestEmptyPathRejected(t *testing.T) {
	_, err := NewMachineConfigService("", nil)
	assert.Error(t, err)
}

func TestUpdateConfigPersistsAndNotifies(t *testing.T) {
	service, path := newService(t, machineYAML)
	publisher := &notifyPublisher{called: make(chan struct{}, 1)}
	service.SetPublisher(publisher)

	var applied *config.Config
	service.SetListener(func(cfg *config.Config) error {
		applied = cfg
		return nil
	})

	updated := machineYAML + "  - id: \"H2\"\n"
	require.NoError(t, service.UpdateConfig([]byte(updated)))

	assert.Len(t, service.GetCurrentConfig().Heads, 2)
	require.NotNil(t, applied)
	assert.Len(t, applied.Heads, 2)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, updated, string(onDisk))

	select {
	case <-publisher.called:
	case <-time.After(time.Second):
		t.Fatal("config update notification was not published")
	}
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	service, path := newService(t, machineYAML)

	err := service.UpdateConfig([]byte("version: [unterminated"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	err = service.UpdateConfig([]byte("version: \"2.0\"\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	onDisk, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, machineYAML, string(onDisk))
	assert.Equal(t, "1.0", service.GetCurrentConfig().Version)
}

func TestUpdateConfigListenerFailure(t *testing.T) {
	service, _ := newService(t, machineYAML)
	service.SetListener(func(cfg *config.Config) error {
		return errors.New("registry busy")
	})

	err := service.UpdateConfig([]byte(machineYAML))
	assert.ErrorContains(t, err, "registry busy")
}

func TestConcurrentUpdatesApplyInWriteOrder(t *testing.T) {
	service, path := newService(t, machineYAML)

	var active, overlaps atomic.Int32
	var mu sync.Mutex
	var applied string
	service.SetListener(func(cfg *config.Config) error {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		defer active.Add(-1)
		time.Sleep(2 * time.Millisecond)
		mu.Lock()
		applied = cfg.MachineID
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			update := strings.Replace(machineYAML, `machine_id: "m1"`, fmt.Sprintf(`machine_id: "m%d"`, i+10), 1)
			assert.NoError(t, service.UpdateConfig([]byte(update)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(0), overlaps.Load())
	current := service.GetCurrentConfig().MachineID
	assert.Equal(t, current, applied)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(onDisk), fmt.Sprintf(`machine_id: "%s"`, current))
}
