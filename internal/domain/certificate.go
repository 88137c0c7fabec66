package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

const (
	// CertificatePrefix is the certificate-type prefix of every artifact filename.
	CertificatePrefix = "certificate"

	// DefaultHolderName is printed when the profile has no display name yet.
	DefaultHolderName = "A Valued Student"

	// DefaultCourseName is used when the request omits course_name.
	DefaultCourseName = "Unnamed Course"

	// DownloadPathPrefix is the public route artifacts are served from.
	DownloadPathPrefix = "/api/certificate/download/"
)

// CertificateRequest exists only for the duration of one generation call.
type CertificateRequest struct {
	SubjectID  string    `json:"subject_id"`
	HolderName string    `json:"holder_name"`
	CourseName string    `json:"course_name"`
	IssuedAt   time.Time `json:"issued_at"`
}

// CertificateArtifact describes a rendered certificate file.
type CertificateArtifact struct {
	Filename    string `json:"filename"`
	FilePath    string `json:"file_path"`
	DownloadURL string `json:"download_url"`
}

// CertificateDocument is everything the renderer needs to lay out one page.
type CertificateDocument struct {
	HolderName     string
	CourseName     string
	IssuedAt       time.Time
	CompletionDate string // human-readable, e.g. "March 04, 2026"
	Payload        string // verification payload encoded into the QR code
}

// SafeCourseToken strips every rune outside ASCII letters, ASCII digits,
// whitespace, '-' and '_', then replaces each whitespace run with one '_'.
func SafeCourseToken(course string) string {
	var b strings.Builder
	b.Grow(len(course))
	inSpace := false
	for _, r := range course {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte('_')
				inSpace = true
			}
			continue
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			// dropped runes do not end a whitespace run
			continue
		}
		inSpace = false
	}
	return b.String()
}

// ArtifactFilename is deterministic: the same subject and course always map
// to the same name, so regenerating overwrites the previous file.
func ArtifactFilename(prefix, subjectID, safeCourse string) string {
	return fmt.Sprintf("%s_%s_%s.pdf", prefix, subjectID, safeCourse)
}

// DownloadURL returns the relative download path for an artifact filename.
func DownloadURL(filename string) string {
	return DownloadPathPrefix + filename
}

// VerificationPayload is the human-readable text embedded in the QR code.
// It is informational only and not tamper-evident.
func VerificationPayload(holder, course string, issuedAt time.Time) string {
	return fmt.Sprintf("User: %s | Course: %s | Date: %s", holder, course, issuedAt.Format("2006-01-02"))
}

// CompletionDate formats the date stamp printed on the page.
func CompletionDate(issuedAt time.Time) string {
	return issuedAt.Format("January 02, 2006")
}
