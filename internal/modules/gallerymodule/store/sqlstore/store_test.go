package sqlstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mantonx/gallery/internal/database"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/core/access"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/core/engine"
	galleryerrors "github.com/mantonx/gallery/internal/modules/gallerymodule/errors"
	"github.com/mantonx/gallery/internal/modules/gallerymodule/types"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	mp4Header  = []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2")
)

func newSQLiteDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	db, err := database.OpenDialector(sqlite.Open(filepath.Join(t.TempDir(), "gallery.db")), false, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	if migrate {
		require.NoError(t, database.Migrate(db))
	}
	return db
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})
	db, err := gorm.Open(dialector, &gorm.Config{})
	require.NoError(t, err)

	t.Cleanup(func() { sqlDB.Close() })
	return db, mock
}

func writeFile(t *testing.T, path string, content []byte, mod time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func str(s string) *string { return &s }

func drain(t *testing.T, cur types.Cursor) []types.RawRow {
	t.Helper()
	var rows []types.RawRow
	for cur.Next() {
		row, err := cur.Row()
		require.NoError(t, err)
		rows = append(rows, row)
	}
	require.NoError(t, cur.Err())
	return rows
}

func TestStore_QueryPageNewestFirst(t *testing.T) {
	db := newSQLiteDB(t, true)
	rows := []database.ImageRow{
		{MediaRow: database.MediaRow{ID: "a", Path: "/a.jpg", DisplayName: str("a.jpg"), MimeType: str("image/jpeg"), AddedAt: 100}},
		{MediaRow: database.MediaRow{ID: "c", Path: "/c.jpg", DisplayName: str("c.jpg"), MimeType: str("image/jpeg"), AddedAt: 300}},
		{MediaRow: database.MediaRow{ID: "b", Path: "/b.jpg", AddedAt: 200}},
		{MediaRow: database.MediaRow{ID: "d", Path: "/d.jpg", AddedAt: 200}},
	}
	require.NoError(t, db.Create(&rows).Error)

	images, _ := NewStores(db)
	assert.Equal(t, types.MediaKindImage, images.Kind())
	assert.Equal(t, database.ImageTable, images.Table())

	cur, err := images.QueryPage(context.Background(), 1)
	require.NoError(t, err)
	got := drain(t, cur)
	require.NoError(t, cur.Close())
	require.NoError(t, cur.Close())

	require.Len(t, got, 3)
	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "a", got[2].ID)
	assert.Nil(t, got[0].DisplayName, "null columns scan as nil")
	assert.Equal(t, "/a.jpg", got[2].Locator)
	assert.Equal(t, "image/jpeg", *got[2].MimeType)

	n, err := images.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestStore_MissingTableIsNotReady(t *testing.T) {
	db := newSQLiteDB(t, false)
	_, videos := NewStores(db)

	_, err := videos.QueryPage(context.Background(), 0)
	assert.ErrorIs(t, err, types.ErrStoreNotReady)

	_, err = videos.CountAll(context.Background())
	assert.ErrorIs(t, err, types.ErrStoreNotReady)

	e := engine.New(access.NewStaticGate(types.AccessFull), NewStore(db, types.MediaKindImage), videos, engine.WithProber(nil))
	_, err = e.LoadPage(context.Background(), 0, 20)
	assert.True(t, galleryerrors.Is(err, galleryerrors.KindNotInitialized))
}

func TestStore_QueryFailure(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, path, added_at, display_name, mime_type FROM "images" ORDER BY added_at DESC, id DESC`)).
		WillReturnError(boom)
	mock.ExpectQuery(`information_schema.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := NewStore(db, types.MediaKindImage).QueryPage(context.Background(), 0)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, types.ErrStoreNotReady)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_IterationFailureThroughEngine(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("disk I/O error")

	cols := []string{"id", "path", "added_at", "display_name", "mime_type"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "images" ORDER BY added_at DESC, id DESC`)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("1", "/1.jpg", 3, "1.jpg", "image/jpeg").
			AddRow("2", "/2.jpg", 2, "2.jpg", "image/jpeg").
			RowError(1, boom)).
		RowsWillBeClosed()

	images, videos := NewStores(db)
	e := engine.New(access.NewStaticGate(types.AccessFull), images, videos, engine.WithProber(nil))

	_, err := e.LoadPage(context.Background(), 0, 20)
	assert.True(t, galleryerrors.Is(err, galleryerrors.KindStoreAccessFailure))
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet(), "cursor must be closed on failure")
}

func TestStore_SharedOffsetReachesVideos(t *testing.T) {
	db, mock := newMockDB(t)

	cols := []string{"id", "path", "added_at", "display_name", "mime_type"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "images" ORDER BY added_at DESC, id DESC OFFSET`)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("i1", "/i1.jpg", 9, "i1.jpg", "image/jpeg")).
		RowsWillBeClosed()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "videos" ORDER BY added_at DESC, id DESC OFFSET`)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("v1", "/v1.mp4", 8, "v1.mp4", "video/mp4").
			AddRow("v2", "/v2.mp4", 7, "v2.mp4", nil)).
		RowsWillBeClosed()

	images, videos := NewStores(db)
	e := engine.New(access.NewStaticGate(types.AccessFull), images, videos, engine.WithProber(nil))

	page, err := e.LoadPage(context.Background(), 1, 3)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "i1", page.Records[0].ID)
	assert.Equal(t, "v1", page.Records[1].ID)
	assert.Equal(t, types.MediaKindVideo, page.Records[1].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexer_IndexAndQuery(t *testing.T) {
	root := t.TempDir()
	base := time.Unix(1_700_000_000, 0)

	writeFile(t, filepath.Join(root, "old.png"), pngHeader, base)
	writeFile(t, filepath.Join(root, "trip", "new.jpg"), jpegHeader, base.Add(2*time.Hour))
	writeFile(t, filepath.Join(root, "clip.mp4"), mp4Header, base.Add(time.Hour))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("not media\n"), base)
	writeFile(t, filepath.Join(root, ".thumbnails", "thumb.jpg"), jpegHeader, base)
	writeFile(t, filepath.Join(root, "skip.jpg.part"), jpegHeader, base)

	db := newSQLiteDB(t, true)
	ix := NewIndexer(db, 2, []string{".thumbnails", "*.part"}, nil)

	res, err := ix.Index(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Scanned)
	assert.Equal(t, 2, res.Images)
	assert.Equal(t, 1, res.Videos)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Failed)

	images, videos := NewStores(db)
	e := engine.New(access.NewStaticGate(types.AccessFull), images, videos)

	page, err := e.LoadPage(context.Background(), 0, 20)
	require.NoError(t, err)
	require.Len(t, page.Records, 3)
	assert.Equal(t, "new.jpg", page.Records[0].DisplayName)
	assert.Equal(t, "old.png", page.Records[1].DisplayName)
	assert.Equal(t, "image/png", page.Records[1].MimeType)
	assert.Equal(t, "clip.mp4", page.Records[2].DisplayName)
	assert.Equal(t, types.MediaKindVideo, page.Records[2].Kind)
	assert.Equal(t, base.Add(2*time.Hour).Unix(), page.Records[0].AddedAt)
	assert.False(t, page.HasNext)
}

func TestIndexer_ReindexKeepsIdentity(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.jpg")
	first := time.Unix(1_600_000_000, 0)
	writeFile(t, path, jpegHeader, first)

	db := newSQLiteDB(t, true)
	ix := NewIndexer(db, 1, nil, nil)

	_, err := ix.Index(context.Background(), root)
	require.NoError(t, err)

	var before database.ImageRow
	require.NoError(t, db.First(&before, "path = ?", path).Error)

	writeFile(t, path, append(jpegHeader, 0x00, 0x01), first.Add(time.Hour))
	_, err = ix.Index(context.Background(), root)
	require.NoError(t, err)

	var after []database.ImageRow
	require.NoError(t, db.Find(&after).Error)
	require.Len(t, after, 1)
	assert.Equal(t, before.ID, after[0].ID)
	assert.Equal(t, first.Unix(), after[0].AddedAt)
	assert.Equal(t, int64(len(jpegHeader)+2), after[0].Size)
}

func TestIndexer_MissingRoot(t *testing.T) {
	db := newSQLiteDB(t, true)
	_, err := NewIndexer(db, 1, nil, nil).Index(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestIndexer_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.jpg"), jpegHeader, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	db := newSQLiteDB(t, true)
	_, err := NewIndexer(db, 1, nil, nil).Index(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}
