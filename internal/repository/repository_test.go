package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/go-cmp/cmp"
	"github.com/meech-ward/qr-full-stack/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AutoMigrate(&models.QRCode{}, &models.QRImage{}, &models.QRUse{}); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestQRCodeRepositoryListRecent(t *testing.T) {
	db := newTestDB(t)
	repo := NewQRCodeRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		qr := &models.QRCode{ID: id, Content: "c", Type: models.QRTypeText, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.Create(ctx, qr); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, qr := range got {
		ids = append(ids, qr.ID)
	}
	if diff := cmp.Diff([]string{"new", "mid"}, ids); diff != "" {
		t.Errorf("ListRecent mismatch (-want +got):\n%s", diff)
	}

	if ok, err := repo.Exists(ctx, "mid"); err != nil || !ok {
		t.Errorf("Exists(mid) = %v, %v", ok, err)
	}
	if ok, _ := repo.Exists(ctx, "nope"); ok {
		t.Error("Exists(nope) = true")
	}
	if _, err := repo.GetByID(ctx, "nope"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("GetByID(nope) = %v", err)
	}
}

func TestQRCodeRepositoryDeleteCascade(t *testing.T) {
	db := newTestDB(t)
	codes := NewQRCodeRepository(db)
	images := NewQRImageRepository(db)
	uses := NewQRUseRepository(db)
	ctx := context.Background()

	for _, id := range []string{"keep", "drop"} {
		if err := codes.Create(ctx, &models.QRCode{ID: id, Content: "example.com", Type: models.QRTypeURL}); err != nil {
			t.Fatal(err)
		}
		for j, filter := range []string{models.FilterNone, "dark"} {
			img := &models.QRImage{ID: fmt.Sprintf("%s%d", id, j), QRCodeID: id, ImageName: id + filter + ".jpg", Filter: filter}
			if err := images.Create(ctx, img); err != nil {
				t.Fatal(err)
			}
		}
		if err := uses.Create(ctx, &models.QRUse{QRID: id, IPAddress: "10.0.0.1"}); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := codes.DeleteCascade(ctx, "drop")
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 2 {
		t.Errorf("removed %d images, want 2", len(removed))
	}

	if _, err := codes.GetByID(ctx, "drop"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("code still present: %v", err)
	}
	if left, _ := images.GetByQRCodeID(ctx, "drop"); len(left) != 0 {
		t.Errorf("%d images left behind", len(left))
	}
	if n, _ := uses.CountByQRID(ctx, "drop"); n != 0 {
		t.Errorf("%d uses left behind", n)
	}
	if kept, _ := images.GetByQRCodeID(ctx, "keep"); len(kept) != 2 {
		t.Errorf("other code lost images: %d", len(kept))
	}
	if n, _ := uses.CountByQRID(ctx, "keep"); n != 1 {
		t.Errorf("other code uses = %d", n)
	}

	if _, err := codes.DeleteCascade(ctx, "drop"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("second delete = %v", err)
	}
}

func TestQRUseRepositoryRecordsScanTime(t *testing.T) {
	db := newTestDB(t)
	uses := NewQRUseRepository(db)
	ctx := context.Background()
	if err := NewQRCodeRepository(db).Create(ctx, &models.QRCode{ID: "abc", Content: "hi", Type: models.QRTypeText}); err != nil {
		t.Fatal(err)
	}

	use := &models.QRUse{QRID: "abc", UserAgent: "curl/8"}
	if err := uses.Create(ctx, use); err != nil {
		t.Fatal(err)
	}
	if use.ID == 0 {
		t.Error("ID not assigned")
	}
	if use.ScannedAt.IsZero() {
		t.Error("ScannedAt not set")
	}
	if n, err := uses.CountByQRID(ctx, "abc"); err != nil || n != 1 {
		t.Errorf("CountByQRID = %d, %v", n, err)
	}
}
