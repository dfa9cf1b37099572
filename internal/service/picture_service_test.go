package service

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"quill/internal/models"
	"quill/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pictureName = regexp.MustCompile(`^[0-9a-f]{16}\.[a-z]+$`)

func TestPictureService_SavePicture(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		format     string
		w, h       int
		wantW      int
		wantH      int
		wantExt    string
		wantFormat string
	}{
		{"landscape png", "me.png", "png", 500, 250, 125, 62, ".png", "png"},
		{"portrait jpeg", "Me.JPG", "jpeg", 300, 600, 62, 125, ".jpg", "jpeg"},
		{"square gif", "me.gif", "gif", 400, 400, 125, 125, ".gif", "gif"},
		{"webp", "me.webp", "webp", 250, 500, 62, 125, ".webp", "webp"},
		{"small image is not upscaled", "tiny.png", "png", 40, 30, 40, 30, ".png", "png"},
		{"jpeg extension keeps jpeg", "x.jpeg", "jpeg", 250, 20, 125, 10, ".jpeg", "jpeg"},
		{"extreme ratio keeps one pixel", "line.png", "png", 2000, 1, 125, 1, ".png", "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			svc := NewPictureService(dir)

			name, err := svc.SavePicture(context.Background(), PictureUpload{
				Filename: tt.filename,
				Content:  testutil.EncodeImage(t, tt.format, tt.w, tt.h),
			})
			require.NoError(t, err)
			assert.Regexp(t, pictureName, name)
			assert.Equal(t, tt.wantExt, filepath.Ext(name))

			data, err := os.ReadFile(filepath.Join(dir, name))
			require.NoError(t, err)
			cfg, format := testutil.DecodeConfig(t, data)
			assert.Equal(t, tt.wantFormat, format)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Equal(t, tt.wantH, cfg.Height)
			assert.LessOrEqual(t, cfg.Width, AvatarSize)
			assert.LessOrEqual(t, cfg.Height, AvatarSize)
		})
	}
}

func TestPictureService_UniqueNames(t *testing.T) {
	svc := NewPictureService(t.TempDir())
	content := testutil.EncodeImage(t, "png", 10, 10)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		name, err := svc.SavePicture(context.Background(), PictureUpload{Filename: "a.png", Content: content})
		require.NoError(t, err)
		assert.False(t, seen[name])
		seen[name] = true
	}
}

func TestPictureService_Errors(t *testing.T) {
	t.Run("not an image", func(t *testing.T) {
		svc := NewPictureService(t.TempDir())
		_, err := svc.SavePicture(context.Background(), PictureUpload{Filename: "a.png", Content: []byte("plain text")})
		assert.Equal(t, models.CodeUnsupportedImage, models.CodeOf(err))
	})

	t.Run("unknown extension", func(t *testing.T) {
		svc := NewPictureService(t.TempDir())
		_, err := svc.SavePicture(context.Background(), PictureUpload{Filename: "a.bmp", Content: testutil.EncodeImage(t, "png", 5, 5)})
		assert.Equal(t, models.CodeUnsupportedImage, models.CodeOf(err))
	})

	t.Run("declared dimensions too large", func(t *testing.T) {
		dir := t.TempDir()
		svc := NewPictureService(dir)
		upload := PictureUpload{Filename: "bomb.png", Content: testutil.PNGHeader(40000, 40000)}

		cfg, format := testutil.DecodeConfig(t, upload.Content)
		require.Equal(t, "png", format)
		require.Equal(t, 40000, cfg.Width)

		_, err := svc.SavePicture(context.Background(), upload)
		assert.Equal(t, models.CodeUnsupportedImage, models.CodeOf(err))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("unwritable directory", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

		svc := NewPictureService(filepath.Join(blocker, "avatars"))
		_, err := svc.SavePicture(context.Background(), PictureUpload{Filename: "a.png", Content: testutil.EncodeImage(t, "png", 5, 5)})
		assert.Equal(t, models.CodeIO, models.CodeOf(err))
	})
}
