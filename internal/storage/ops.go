package storage

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cesargomez89/archivebackup/internal/constants"
	"github.com/cesargomez89/archivebackup/internal/domain"
)

// ItemDir returns root/identifier. Identifiers are single path components.
func ItemDir(root, identifier string) (string, error) {
	if identifier == "" || identifier == "." || identifier == ".." ||
		strings.ContainsAny(identifier, "/\\\x00") {
		return "", fmt.Errorf("%w: identifier %q", domain.ErrUnsafePath, identifier)
	}
	return filepath.Join(root, identifier), nil
}

// CleanName is the relative slash path a remote name is stored under.
// Backslashes count as separators and leading slashes are stripped; names
// that resolve outside the item directory are rejected.
func CleanName(name string) (string, error) {
	if strings.ContainsRune(name, '\x00') {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsafePath, name)
	}

	rel := strings.ReplaceAll(name, "\\", "/")
	rel = strings.TrimLeft(rel, "/")
	rel = path.Clean(rel)

	if rel == "." || rel == "" || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsafePath, name)
	}
	return rel, nil
}

// SafeJoin resolves a remote relative name under root.
func SafeJoin(root, name string) (string, error) {
	rel, err := CleanName(name)
	if err != nil {
		return "", err
	}

	full := filepath.Join(root, filepath.FromSlash(rel))
	check, err := filepath.Rel(root, full)
	if err != nil || check == ".." || strings.HasPrefix(check, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsafePath, name)
	}
	return full, nil
}

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

// CreateTemp opens a hidden partial file next to target.
func CreateTemp(target string) (*os.File, error) {
	dir, base := filepath.Split(target)
	return os.CreateTemp(dir, "."+base+".*"+constants.ExtPart)
}

func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}
	return nil
}

func RemoveFile(path string) error {
	return os.Remove(path)
}

func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func hashFile(path string, h hash.Hash) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

func MD5File(path string) (string, error) {
	return hashFile(path, md5.New())
}

func SHA1File(path string) (string, error) {
	return hashFile(path, sha1.New())
}

// VerifyChecksums compares the file against whichever listing checksums are set.
func VerifyChecksums(path, expectedMD5, expectedSHA1 string) error {
	if expectedMD5 != "" {
		got, err := MD5File(path)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
		}
		if !strings.EqualFold(got, expectedMD5) {
			return fmt.Errorf("%w: md5 %s, expected %s", domain.ErrChecksumMismatch, got, expectedMD5)
		}
		return nil
	}
	if expectedSHA1 != "" {
		got, err := SHA1File(path)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrFilesystem, err)
		}
		if !strings.EqualFold(got, expectedSHA1) {
			return fmt.Errorf("%w: sha1 %s, expected %s", domain.ErrChecksumMismatch, got, expectedSHA1)
		}
	}
	return nil
}
