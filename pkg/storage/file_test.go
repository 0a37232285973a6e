package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrCodeEU/posegate/pkg/pose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T, encrypted bool) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "data", "users.json"), encrypted)
	require.NoError(t, err)
	return fs
}

func TestNewFileStore(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name       string
		path       string
		encryption bool
		wantPath   string
	}{
		{
			name:     "without encryption",
			path:     filepath.Join(tmpDir, "plain", "users.json"),
			wantPath: filepath.Join(tmpDir, "plain", "users.json"),
		},
		{
			name:       "with encryption",
			path:       filepath.Join(tmpDir, "sealed", "users.json"),
			encryption: true,
			wantPath:   filepath.Join(tmpDir, "sealed", "users.enc"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := NewFileStore(tt.path, tt.encryption)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, fs.Path())

			_, err = os.Stat(filepath.Dir(tt.wantPath))
			assert.NoError(t, err, "store directory was not created")
		})
	}

	_, err := NewFileStore("", false)
	assert.Error(t, err)
}

func TestFileStore_AddAndFind(t *testing.T) {
	for _, encrypted := range []bool{false, true} {
		t.Run(map[bool]string{false: "plain", true: "encrypted"}[encrypted], func(t *testing.T) {
			ctx := context.Background()
			fs := newTestFileStore(t, encrypted)

			rec := testRecord("  Ada@Example.COM ")
			require.NoError(t, fs.AddUser(ctx, rec))

			got, err := fs.FindUser(ctx, "ada@example.com")
			require.NoError(t, err)

			assert.Equal(t, "ada@example.com", got.Email)
			assert.Equal(t, rec.FirstName, got.FirstName)
			assert.Equal(t, rec.PasswordHash, got.PasswordHash)
			assert.NotEmpty(t, got.ID)
			assert.False(t, got.EnrolledAt.IsZero())
			require.Len(t, got.Poses, 5)
			for _, p := range pose.RequiredPoses() {
				assert.Equal(t, rec.Poses[p], got.Poses[p], "signature for %s", p)
			}

			// Lookups are case-insensitive too.
			_, err = fs.FindUser(ctx, "ADA@example.com")
			assert.NoError(t, err)
		})
	}
}

func TestFileStore_DocumentLayout(t *testing.T) {
	fs := newTestFileStore(t, false)
	require.NoError(t, fs.AddUser(context.Background(), testRecord("a@x.com")))

	data, err := os.ReadFile(fs.Path())
	require.NoError(t, err)

	var doc map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc["users"], 1)

	user := doc["users"][0]
	assert.Equal(t, "a@x.com", user["email"])
	poses, ok := user["poses"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, poses, "front")
	assert.Contains(t, poses, "down")

	info, err := os.Stat(fs.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_EncryptedDocumentIsOpaque(t *testing.T) {
	fs := newTestFileStore(t, true)
	require.NoError(t, fs.AddUser(context.Background(), testRecord("a@x.com")))

	data, err := os.ReadFile(fs.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "a@x.com")
}

func TestFileStore_FindUser_NotFound(t *testing.T) {
	fs := newTestFileStore(t, false)

	_, err := fs.FindUser(context.Background(), "nobody@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFileStore_AddUser_Duplicate(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t, false)

	require.NoError(t, fs.AddUser(ctx, testRecord("a@x.com")))
	err := fs.AddUser(ctx, testRecord("A@X.COM"))
	assert.ErrorIs(t, err, ErrUserExists)

	emails, err := fs.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, emails)
}

func TestFileStore_AddUser_RejectsIncomplete(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t, false)

	rec := testRecord("a@x.com")
	delete(rec.Poses, pose.Up)

	err := fs.AddUser(ctx, rec)
	assert.ErrorIs(t, err, ErrIncompleteEnrollment)

	_, err = os.Stat(fs.Path())
	assert.True(t, os.IsNotExist(err), "nothing should be written")
}

func TestFileStore_UpdateUser(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t, false)

	enrolled := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fs.now = func() time.Time { return enrolled }
	require.NoError(t, fs.AddUser(ctx, testRecord("a@x.com")))
	before, err := fs.FindUser(ctx, "a@x.com")
	require.NoError(t, err)

	later := enrolled.Add(time.Hour)
	fs.now = func() time.Time { return later }

	update := testRecord("a@x.com")
	update.FirstName = "Augusta"
	update.Poses[pose.Front] = testSignature(0.9)
	update.ID = "ignored"
	require.NoError(t, fs.UpdateUser(ctx, update))

	after, err := fs.FindUser(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Augusta", after.FirstName)
	assert.Equal(t, testSignature(0.9), after.Poses[pose.Front])
	assert.Equal(t, before.ID, after.ID)
	assert.True(t, after.EnrolledAt.Equal(enrolled))
	assert.True(t, after.UpdatedAt.Equal(later))

	err = fs.UpdateUser(ctx, testRecord("b@x.com"))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestFileStore_ListUsers(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t, false)

	emails, err := fs.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, emails)

	for _, e := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		require.NoError(t, fs.AddUser(ctx, testRecord(e)))
	}

	emails, err = fs.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c@x.com", "a@x.com", "b@x.com"}, emails)
}

func TestFileStore_DeleteUser(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t, false)

	require.NoError(t, fs.AddUser(ctx, testRecord("a@x.com")))
	require.NoError(t, fs.AddUser(ctx, testRecord("b@x.com")))

	require.NoError(t, fs.DeleteUser(ctx, " A@x.com"))
	_, err := fs.FindUser(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = fs.FindUser(ctx, "b@x.com")
	assert.NoError(t, err)

	assert.ErrorIs(t, fs.DeleteUser(ctx, "a@x.com"), ErrUserNotFound)
}

func TestFileStore_CorruptDocumentTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t, false)
	require.NoError(t, os.WriteFile(fs.Path(), []byte("{\"users\": [ not json"), 0600))

	emails, err := fs.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, emails)

	_, err = fs.FindUser(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	// The next write replaces the corrupt document.
	require.NoError(t, fs.AddUser(ctx, testRecord("a@x.com")))
	emails, err = fs.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@x.com"}, emails)
}

func TestFileStore_LegacyFaceKey(t *testing.T) {
	fs := newTestFileStore(t, false)

	rec := testRecord("a@x.com")
	data, err := json.Marshal(document{Users: []UserRecord{rec}})
	require.NoError(t, err)
	legacy := strings.Replace(string(data), `"front":`, `"face":`, 1)
	require.NotEqual(t, string(data), legacy)
	require.NoError(t, os.WriteFile(fs.Path(), []byte(legacy), 0600))

	got, err := fs.FindUser(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.NoError(t, got.Validate())
	assert.Equal(t, rec.Poses[pose.Front], got.Poses[pose.Front])
	assert.Len(t, got.Signatures(), len(pose.RequiredPoses()))
}

func TestFileStore_UndecryptableDocumentTreatedAsEmpty(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t, true)
	require.NoError(t, os.WriteFile(fs.Path(), []byte("short"), 0600))

	emails, err := fs.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, emails)
}

func TestFileStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t, false)

	rec := testRecord("a@x.com")
	require.NoError(t, fs.AddUser(ctx, rec))
	rec.Poses[pose.Front][0] = 42

	got, err := fs.FindUser(ctx, "a@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, float32(42), got.Poses[pose.Front][0])
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	fs := newTestFileStore(t, false)

	require.NoError(t, fs.AddUser(ctx, testRecord("a@x.com")))
	require.NoError(t, fs.DeleteUser(ctx, "a@x.com"))

	entries, err := os.ReadDir(filepath.Dir(fs.Path()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover %s", e.Name())
	}
}

func TestEncryptDecrypt(t *testing.T) {
	fs := newTestFileStore(t, true)

	plaintext := []byte(`{"users":[]}`)
	sealed, err := fs.encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := fs.decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)

	sealed[len(sealed)-1] ^= 0xFF
	_, err = fs.decrypt(sealed)
	assert.ErrorIs(t, err, ErrEncryption)
}

func BenchmarkFileStore_FindUser(b *testing.B) {
	ctx := context.Background()
	fs, err := NewFileStore(filepath.Join(b.TempDir(), "users.json"), false)
	if err != nil {
		b.Fatal(err)
	}
	if err := fs.AddUser(ctx, testRecord("a@x.com")); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = fs.FindUser(ctx, "a@x.com")
	}
}
