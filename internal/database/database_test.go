package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantonx/gallery/internal/config"
)

func TestOpen_SQLiteMigrates(t *testing.T) {
	cfg := config.DatabaseConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "nested", "gallery.db"),
	}

	db, err := Open(cfg, nil)
	require.NoError(t, err)
	defer Close(db)

	assert.True(t, db.Migrator().HasTable(ImageTable))
	assert.True(t, db.Migrator().HasTable(VideoTable))
	assert.True(t, db.Migrator().HasIndex(&ImageRow{}, "AddedAt"))

	name := "a.jpg"
	row := ImageRow{MediaRow{ID: "1", Path: "/a.jpg", DisplayName: &name, AddedAt: 10}}
	require.NoError(t, db.Create(&row).Error)

	dup := ImageRow{MediaRow{ID: "2", Path: "/a.jpg", AddedAt: 11}}
	assert.Error(t, db.Create(&dup).Error, "paths are unique")
}

func TestDialector(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DatabaseConfig
		dialect string
		wantErr bool
	}{
		{name: "default sqlite", cfg: config.DatabaseConfig{Path: ":memory:"}, dialect: "sqlite"},
		{name: "postgres", cfg: config.DatabaseConfig{Type: "postgres", DSN: "host=localhost"}, dialect: "postgres"},
		{name: "postgres without dsn", cfg: config.DatabaseConfig{Type: "postgres"}, wantErr: true},
		{name: "unknown", cfg: config.DatabaseConfig{Type: "mysql"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Dialector(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.dialect, d.Name())
		})
	}
}
