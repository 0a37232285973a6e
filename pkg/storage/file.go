package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MrCodeEU/posegate/pkg/logging"
)

// document is the on-disk layout of the file backend.
type document struct {
	Users []UserRecord `json:"users"`
}

// FileStore keeps every record in one JSON document. The document is read
// in full on every operation and rewritten in full, through a temporary file
// and rename, on every mutation.
type FileStore struct {
	mu                sync.Mutex
	path              string
	encryptionEnabled bool
	encryptionKey     [KeySize]byte
	now               func() time.Time
}

// NewFileStore creates a FileStore at path. With encryption enabled the
// document is sealed with a machine-bound key and stored with an .enc
// extension.
func NewFileStore(path string, encryptionEnabled bool) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store path must not be empty")
	}

	fs := &FileStore{
		path:              path,
		encryptionEnabled: encryptionEnabled,
		now:               time.Now,
	}

	// Derive encryption key from machine-specific information
	if encryptionEnabled {
		key, err := deriveKey()
		if err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		fs.encryptionKey = key
		fs.path = strings.TrimSuffix(path, filepath.Ext(path)) + ".enc"
	}

	if err := os.MkdirAll(filepath.Dir(fs.path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return fs, nil
}

// Path returns the location of the document.
func (fs *FileStore) Path() string {
	return fs.path
}

// load reads the document. A missing, unreadable or corrupted document is
// treated as empty.
func (fs *FileStore) load() document {
	log := logging.Component("storage").WithField("path", fs.path)

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warn("Failed to read user store, treating as empty")
		}
		return document{}
	}

	// Decrypt if enabled
	if fs.encryptionEnabled {
		data, err = fs.decrypt(data)
		if err != nil {
			log.WithError(err).Warn("Failed to decrypt user store, treating as empty")
			return document{}
		}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.WithError(err).Warn("Corrupted user store, treating as empty")
		return document{}
	}
	for i := range doc.Users {
		doc.Users[i].normalizePoses()
	}
	return doc
}

// save replaces the document atomically.
func (fs *FileStore) save(doc document) error {
	if doc.Users == nil {
		doc.Users = []UserRecord{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user store: %w", err)
	}

	// Encrypt if enabled
	if fs.encryptionEnabled {
		data, err = fs.encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt user store: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".users-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary store file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write user store: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set store permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write user store: %w", err)
	}
	if err := os.Rename(tmp.Name(), fs.path); err != nil {
		return fmt.Errorf("failed to replace user store: %w", err)
	}
	return nil
}

func (doc *document) index(email string) int {
	for i := range doc.Users {
		if NormalizeEmail(doc.Users[i].Email) == email {
			return i
		}
	}
	return -1
}

// FindUser implements Repository.
func (fs *FileStore) FindUser(ctx context.Context, email string) (*UserRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc := fs.load()
	i := doc.index(NormalizeEmail(email))
	if i < 0 {
		return nil, ErrUserNotFound
	}
	rec := doc.Users[i].clone()
	return &rec, nil
}

// AddUser implements Repository.
func (fs *FileStore) AddUser(ctx context.Context, rec UserRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	rec, err := prepareNew(rec, fs.now())
	if err != nil {
		return err
	}

	doc := fs.load()
	if doc.index(rec.Email) >= 0 {
		return ErrUserExists
	}
	doc.Users = append(doc.Users, rec)

	if err := fs.save(doc); err != nil {
		return err
	}
	logging.Component("storage").Infof("Added user: %s", rec.Email)
	return nil
}

// UpdateUser implements Repository. The record keeps its original ID and
// enrollment time.
func (fs *FileStore) UpdateUser(ctx context.Context, rec UserRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := rec.Validate(); err != nil {
		return err
	}

	doc := fs.load()
	i := doc.index(NormalizeEmail(rec.Email))
	if i < 0 {
		return ErrUserNotFound
	}

	rec = rec.clone()
	rec.Email = NormalizeEmail(rec.Email)
	rec.ID = doc.Users[i].ID
	rec.EnrolledAt = doc.Users[i].EnrolledAt
	rec.UpdatedAt = fs.now()
	doc.Users[i] = rec

	if err := fs.save(doc); err != nil {
		return err
	}
	logging.Component("storage").Debugf("Updated user: %s", rec.Email)
	return nil
}

// ListUsers implements Repository. Emails are returned in registration
// order.
func (fs *FileStore) ListUsers(ctx context.Context) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	doc := fs.load()
	emails := make([]string, 0, len(doc.Users))
	for _, u := range doc.Users {
		emails = append(emails, u.Email)
	}
	return emails, nil
}

// DeleteUser implements Repository.
func (fs *FileStore) DeleteUser(ctx context.Context, email string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	email = NormalizeEmail(email)
	doc := fs.load()
	i := doc.index(email)
	if i < 0 {
		return ErrUserNotFound
	}
	doc.Users = append(doc.Users[:i], doc.Users[i+1:]...)

	if err := fs.save(doc); err != nil {
		return err
	}
	logging.Component("storage").Infof("Deleted user: %s", email)
	return nil
}

// Close implements Repository.
func (fs *FileStore) Close() error {
	return nil
}
