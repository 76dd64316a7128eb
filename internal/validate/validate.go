// Package validate rejects upload streams that violate the configured policy
// before any storage I/O happens. Declared filenames, extensions and MIME
// headers are attacker-controlled; only sniffed content is trusted.
package validate

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Reason codes carried by Error. The boundary maps them to HTTP statuses.
const (
	CodeEmptyFile      = "empty_file"
	CodeTooLarge       = "too_large"
	CodeBadExtension   = "bad_extension"
	CodeMimeMismatch   = "mime_mismatch"
	CodeThreatDetected = "threat_detected"
)

// Error is a policy rejection with a machine-readable reason code.
// The validator never coerces an invalid upload; it only rejects.
type Error struct {
	Code   string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upload rejected (%s): %s", e.Code, e.Detail)
}

// Policy is the per-class upload policy. The caller picks the policy for its
// context; the validator never infers one.
type Policy struct {
	MaxSizeBytes int64
	// AllowedTypes maps lowercase extensions (with leading dot) to the MIME
	// type that content sniffing must agree with.
	AllowedTypes map[string]string
}

// Documents is the policy for general paperwork uploads.
func Documents(maxSize int64) Policy {
	return Policy{
		MaxSizeBytes: maxSize,
		AllowedTypes: map[string]string{
			".pdf":  "application/pdf",
			".jpg":  "image/jpeg",
			".jpeg": "image/jpeg",
			".png":  "image/png",
			".webp": "image/webp",
			".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		},
	}
}

// Images is the stricter policy for photo uploads.
func Images(maxSize int64) Policy {
	return Policy{
		MaxSizeBytes: maxSize,
		AllowedTypes: map[string]string{
			".jpg":  "image/jpeg",
			".jpeg": "image/jpeg",
			".png":  "image/png",
			".webp": "image/webp",
		},
	}
}

// Result describes a validated upload. MimeType and SizeBytes come from the
// content itself, not from client-supplied headers.
type Result struct {
	MimeType  string
	SizeBytes int64
	SHA256    string
}

// headerLen is how much of the file is sniffed for type and threat checks.
const headerLen = 3072

// suspiciousPatterns are script fragments that have no business inside the
// allowed document types, wherever they appear in the header.
var suspiciousPatterns = [][]byte{
	[]byte("<script"),
	[]byte("javascript:"),
	[]byte("vbscript:"),
	[]byte("<?php"),
	[]byte("<%"),
	[]byte("eval("),
	[]byte("exec("),
}

// executableSignatures are magic prefixes of executable formats.
var executableSignatures = [][]byte{
	[]byte("MZ"),               // Windows PE
	[]byte("\x7fELF"),          // ELF
	{0xca, 0xfe, 0xba, 0xbe},   // Java class / universal binary
	[]byte("#!"),               // shebang
}

// Check validates the stream against the policy. The reader is left
// positioned at the start so the caller can hand it straight to storage.
// Checks run cheapest-first: size, extension, content signature, threat scan.
func Check(f io.ReadSeeker, declaredName string, p Policy) (Result, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return Result{}, fmt.Errorf("seek upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("seek upload: %w", err)
	}
	if size == 0 {
		return Result{}, &Error{Code: CodeEmptyFile, Detail: "file is empty"}
	}
	if size > p.MaxSizeBytes {
		return Result{}, &Error{
			Code:   CodeTooLarge,
			Detail: fmt.Sprintf("file is %d bytes, limit is %d", size, p.MaxSizeBytes),
		}
	}

	ext := strings.ToLower(filepath.Ext(declaredName))
	expectedMime, allowed := p.AllowedTypes[ext]
	if !allowed {
		return Result{}, &Error{
			Code:   CodeBadExtension,
			Detail: fmt.Sprintf("extension %q is not allowed", ext),
		}
	}

	header := make([]byte, headerLen)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Result{}, fmt.Errorf("read upload header: %w", err)
	}
	header = header[:n]

	if detail, found := scanThreats(header); found {
		return Result{}, &Error{Code: CodeThreatDetected, Detail: detail}
	}

	detected := mimetype.Detect(header)
	if !mimeAgrees(detected, expectedMime) {
		return Result{}, &Error{
			Code: CodeMimeMismatch,
			Detail: fmt.Sprintf("content is %s but extension %q implies %s",
				detected.String(), ext, expectedMime),
		}
	}

	// Hash the whole stream for integrity, then rewind for the caller.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("seek upload: %w", err)
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Result{}, fmt.Errorf("hash upload: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Result{}, fmt.Errorf("seek upload: %w", err)
	}

	return Result{
		MimeType:  expectedMime,
		SizeBytes: size,
		SHA256:    hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func scanThreats(header []byte) (string, bool) {
	for _, sig := range executableSignatures {
		if bytes.HasPrefix(header, sig) {
			return "executable content signature", true
		}
	}
	lower := bytes.ToLower(header)
	for _, pat := range suspiciousPatterns {
		if bytes.Contains(lower, pat) {
			return fmt.Sprintf("suspicious pattern %q", pat), true
		}
	}
	return "", false
}

// mimeAgrees reports whether the sniffed type is consistent with the type the
// extension implies. OOXML files sniffed from a truncated header can resolve
// to plain zip, which is accepted for the OOXML extensions.
func mimeAgrees(detected *mimetype.MIME, expected string) bool {
	if detected.Is(expected) {
		return true
	}
	if strings.HasPrefix(expected, "application/vnd.openxmlformats-officedocument.") {
		return detected.Is("application/zip")
	}
	return false
}
