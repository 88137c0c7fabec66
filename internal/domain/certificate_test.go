package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeCourseToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Intro to Testing", "Intro_to_Testing"},
		{"C++ & Data/Structures!", "C_DataStructures"},
		{"Go   Concurrency\t101", "Go_Concurrency_101"},
		{"already_safe-name", "already_safe-name"},
		{"Café Basics", "Caf_Basics"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeCourseToken(tt.in))
		})
	}
}

func TestSafeCourseToken_OnlyAllowedCharacters(t *testing.T) {
	allowed := regexp.MustCompile(`^[A-Za-z0-9_-]*$`)
	inputs := []string{
		"C++ & Data/Structures!",
		"../../etc/passwd",
		"Machine Learning: A \"Practical\" Guide (2nd ed.)",
		"日本語 コース",
		"tabs\tand\nnewlines",
	}
	for _, in := range inputs {
		got := SafeCourseToken(in)
		assert.Regexp(t, allowed, got, "input %q", in)
	}
}

func TestArtifactFilename_Deterministic(t *testing.T) {
	a := ArtifactFilename(CertificatePrefix, "u-1", SafeCourseToken("Intro to Testing"))
	b := ArtifactFilename(CertificatePrefix, "u-1", SafeCourseToken("Intro to Testing"))

	assert.Equal(t, a, b)
	assert.Equal(t, "certificate_u-1_Intro_to_Testing.pdf", a)
	assert.Equal(t, "/api/certificate/download/certificate_u-1_Intro_to_Testing.pdf", DownloadURL(a))
}

func TestVerificationPayload(t *testing.T) {
	at := time.Date(2026, time.March, 4, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, "User: Ada | Course: Intro to Testing | Date: 2026-03-04",
		VerificationPayload("Ada", "Intro to Testing", at))
	assert.Equal(t, "March 04, 2026", CompletionDate(at))
}

func TestTrimHistory(t *testing.T) {
	var msgs []ChatMessage
	for i := 0; i < 25; i++ {
		msgs = append(msgs, ChatMessage{Role: ChatRoleUser, Text: string(rune('a' + i))})
	}

	got := TrimHistory(msgs, MaxChatHistory)

	assert.Len(t, got, MaxChatHistory)
	assert.Equal(t, "f", got[0].Text)
	assert.Equal(t, "y", got[len(got)-1].Text)
	assert.Len(t, TrimHistory(msgs[:3], MaxChatHistory), 3)
}

func TestUserProfileClone(t *testing.T) {
	u := &UserProfile{ID: "1", Interests: []string{"go"}, PasswordHash: []byte("h")}
	c := u.Clone()
	c.Interests[0] = "rust"
	c.PasswordHash[0] = 'x'

	assert.Equal(t, "go", u.Interests[0])
	assert.Equal(t, byte('h'), u.PasswordHash[0])
	assert.True(t, ValidRole(RoleInstructor))
	assert.False(t, ValidRole("admin"))
}
