package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"expensetracker/internal/backend"
	"expensetracker/internal/config"
	"expensetracker/internal/store/memory"
)

func TestNewServicesWithoutEvents(t *testing.T) {
	cfg := config.Load()
	svc := NewServices(cfg, &backend.BackendResult{Store: memory.New()})
	assert.NotNil(t, svc.Transactions)
	assert.NotNil(t, svc.Reports)
}

func TestSetupLogger(t *testing.T) {
	cfg := config.Load()
	logger := SetupLogger(cfg, "test")
	assert.Equal(t, "test", logger.Component())
}
