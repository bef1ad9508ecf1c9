package download

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		message string
		want    ResultStatus
	}{
		{"ERROR: Sign in to confirm you're not a bot", ResultAuthError},
		{"This video is available to this channel's members only", ResultAuthError},
		{"Private video. Sign in if you've been granted access", ResultAuthError},
		{"ERROR: Video unavailable", ResultAuthError},
		{"Login required to view this content", ResultAuthError},
		{"ERROR: unable to download video data: The read operation timed out", ResultNetworkError},
		{"getaddrinfo failed", ResultNetworkError},
		{"Temporary failure in name resolution", ResultNetworkError},
		{"Connection reset by peer", ResultNetworkError},
		{"ERROR: requested format is not available", ResultUnknown},
		{"", ResultUnknown},
		{"something exploded", ResultUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.message), "message %q", tc.message)
	}
}

func TestClassify_AuthBeatsNetwork(t *testing.T) {
	// Messages matching both classes resolve to auth so the user is told
	// to refresh cookies rather than retry.
	got := Classify("sign in required, connection closed")
	assert.Equal(t, ResultAuthError, got)
}
