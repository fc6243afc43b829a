package gmailclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	tests := []struct {
		name     string
		sender   string
		from     string
		subject  string
		expected string
	}{
		{
			name:    "with sender name",
			sender:  "Helping Hands",
			from:    "team@example.com",
			subject: "Please confirm",
			expected: "From: Helping Hands <team@example.com>\r\n" +
				"To: alice@example.com\r\n" +
				"Subject: Please confirm\r\n" +
				"MIME-Version: 1.0\r\n" +
				"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
				"\r\nHello",
		},
		{
			name:    "default account omits from",
			sender:  "Helping Hands",
			from:    "me",
			subject: "Please confirm",
			expected: "To: alice@example.com\r\n" +
				"Subject: Please confirm\r\n" +
				"MIME-Version: 1.0\r\n" +
				"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
				"\r\nHello",
		},
		{
			name:    "non ascii subject is encoded",
			from:    "me",
			subject: "Café visit",
			expected: "To: alice@example.com\r\n" +
				"Subject: =?utf-8?q?Caf=C3=A9_visit?=\r\n" +
				"MIME-Version: 1.0\r\n" +
				"Content-Type: text/plain; charset=\"UTF-8\"\r\n" +
				"\r\nHello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildMessage(tt.sender, tt.from, "alice@example.com", tt.subject, "Hello"))
		})
	}
}
