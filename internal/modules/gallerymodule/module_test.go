package gallerymodule

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantonx/gallery/internal/config"
	"github.com/mantonx/gallery/internal/database"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/core/access"
	galleryerrors "github.com/mantonx/gallery/internal/modules/gallerymodule/errors"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

func newTestModule(t *testing.T, mutate func(*config.Config), opts ...Option) (*Module, string) {
	t.Helper()
	root := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "gallery.db")
	cfg.Library.Roots = []string{root}
	cfg.Gallery.PageSize = 2
	if mutate != nil {
		mutate(cfg)
	}

	db, err := database.Open(cfg.Database, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	m := NewModule(*cfg, db, opts...)
	require.NoError(t, m.Init())
	return m, root
}

func writeMedia(t *testing.T, path string, content []byte, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, content, 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestModule_IndexAndPage(t *testing.T) {
	m, root := newTestModule(t, nil, WithRegistry(prometheus.NewRegistry()))
	assert.Equal(t, ModuleID, m.ID())
	assert.True(t, m.IsInitialized())

	base := time.Unix(1_700_000_000, 0)
	writeMedia(t, filepath.Join(root, "a.jpg"), []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), base)
	writeMedia(t, filepath.Join(root, "b.png"), []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), base.Add(time.Minute))
	writeMedia(t, filepath.Join(root, "c.mp4"), []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2"), base.Add(time.Hour))

	res, err := m.IndexLibrary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Images)
	assert.Equal(t, 1, res.Videos)

	page, err := m.Repository().Page(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "b.png", page.Records[0].DisplayName)
	assert.Equal(t, "a.jpg", page.Records[1].DisplayName)
	assert.True(t, page.HasNext)

	f := m.Repository().Feed(context.Background())
	defer f.Close()
	require.NoError(t, f.LoadMore(context.Background()))
	require.NoError(t, f.LoadMore(context.Background()))
	snap := f.Snapshot()
	assert.Equal(t, 2, snap.Pages)
	assert.Len(t, snap.Records, 2, "page 1 reads videos from offset 2, past the single video")
	assert.True(t, snap.Exhausted())

	n, err := m.Engine().TotalCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestModule_StoreRelativePolicy(t *testing.T) {
	m, root := newTestModule(t, func(c *config.Config) {
		c.Gallery.OffsetPolicy = "store_relative"
		c.Gallery.ProbeFiles = false
	})

	base := time.Unix(1_700_000_000, 0)
	writeMedia(t, filepath.Join(root, "a.jpg"), []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), base)
	writeMedia(t, filepath.Join(root, "b.png"), []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), base.Add(time.Minute))
	writeMedia(t, filepath.Join(root, "c.mp4"), []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2"), base.Add(time.Hour))

	_, err := m.IndexLibrary(context.Background())
	require.NoError(t, err)

	page, err := m.Repository().Page(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "c.mp4", page.Records[0].DisplayName)
}

func TestModule_DeniedAccessOverHTTP(t *testing.T) {
	gate := access.NewStaticGate(types.AccessDenied)
	m, _ := newTestModule(t, nil, WithGate(gate))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	m.RegisterRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/media", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := m.Repository().Page(context.Background(), 0)
	assert.True(t, galleryerrors.Is(err, galleryerrors.KindPermissionDenied))
}

func TestModule_EmptyLibrary(t *testing.T) {
	m, _ := newTestModule(t, nil)

	res, err := m.IndexLibrary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)

	_, err = m.Repository().Page(context.Background(), 0)
	assert.True(t, galleryerrors.Is(err, galleryerrors.KindNoMediaFound))
}

func TestModule_InitRequiresDatabase(t *testing.T) {
	m := NewModule(*config.DefaultConfig(), nil)
	assert.Error(t, m.Init())
	assert.False(t, m.IsInitialized())

	_, err := m.IndexLibrary(context.Background())
	assert.Error(t, err)
}
