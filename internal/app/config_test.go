package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform/crm")
	t.Setenv("PORT", "9090")

	cfg := Config{Addr: defaultAddr}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://platform/crm", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)

	cfg = Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://explicit/crm"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit/crm", cfg.DatabaseURL, "explicit URL wins")
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr, "explicit addr wins")
}
